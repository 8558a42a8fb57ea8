package genfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `/// this is a comment, stripped entirely
# root
## use: helper
## keep_context: false
## max_context: 4
some prompt {{greeting}} text
more root prompt {{name}}

# helper
## input: A short note.
some helper prompt text

{{greeting}}
Hello there
{{/greeting}}

{{name}}
World
{{/name}}
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.gen")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseExtractsVariablesAndInstructions(t *testing.T) {
	path := writeSample(t, sample)

	variables, instructions, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Hello there", variables["greeting"])
	assert.Equal(t, "World", variables["name"])

	root, ok := instructions["root"]
	require.True(t, ok)
	assert.Equal(t, []string{"helper"}, root.Use)
	assert.False(t, root.KeepContext)
	assert.Equal(t, 4, root.MaxContext)
	assert.Equal(t, DefaultInputPrompt, root.InputPrompt)
	assert.Equal(t, DefaultTemperature, root.Temperature)
	assert.Contains(t, root.Prompt, "{{greeting}}")
	assert.NotContains(t, root.Prompt, "## use:")

	helper, ok := instructions["helper"]
	require.True(t, ok)
	assert.Equal(t, "A short note.", helper.InputPrompt)
	assert.True(t, helper.KeepContext)
	assert.Equal(t, 0, helper.MaxContext)
}

func TestParseRejectsNonGenExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	_, _, err := Parse(path)
	require.Error(t, err)
}

func TestRenderInterpolatesVariablesAndInput(t *testing.T) {
	path := writeSample(t, sample)
	variables, instructions, err := Parse(path)
	require.NoError(t, err)

	rendered := Render(instructions, variables, "user input value")

	root := rendered["root"]
	assert.Contains(t, root.Prompt, "Hello there")
	assert.Contains(t, root.Prompt, "World")
	assert.NotContains(t, root.Prompt, "{{greeting}}")
}

func TestRenderLeavesUnresolvedPlaceholdersInPlace(t *testing.T) {
	instructions := map[string]Instruction{
		"root": {Label: "root", Prompt: "value is {{missing}}"},
	}
	rendered := Render(instructions, map[string]string{}, "")
	assert.Equal(t, "value is {{missing}}", rendered["root"].Prompt)
}

func TestEscapeJSONEscapesControlAndQuoteCharacters(t *testing.T) {
	instructions := map[string]Instruction{
		"root": {Label: "root", Prompt: "say {{msg}}"},
	}
	rendered := Render(instructions, map[string]string{"msg": "line1\nline2 \"quoted\""}, "")
	assert.Equal(t, `say line1\nline2 \"quoted\"`, rendered["root"].Prompt)
}
