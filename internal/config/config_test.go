package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MENTALS_TEST_VAR", "resolved")

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"braced", "value: ${MENTALS_TEST_VAR}", "value: resolved"},
		{"simple", "value: $MENTALS_TEST_VAR", "value: resolved"},
		{"with_default_present", "value: ${MENTALS_TEST_VAR:-fallback}", "value: resolved"},
		{"with_default_absent", "value: ${MENTALS_UNSET_VAR:-fallback}", "value: fallback"},
		{"no_vars", "value: plain", "value: plain"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, expandEnvVars(tc.in))
		})
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gpt-4o-mini\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, "chromem", cfg.VectorStore.Type)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsMissingModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
