package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentals-ai/mentals/internal/toolregistry"
)

type stubMemory struct {
	keyword, description, content string
	calls                         int
}

func (m *stubMemory) Remember(keyword, description, content string) {
	m.keyword, m.description, m.content = keyword, description, content
	m.calls++
}

type stubPython struct {
	gotCode, gotDeps string
	result           string
}

func (p *stubPython) RunPythonCode(ctx context.Context, code, dependencies string) string {
	p.gotCode, p.gotDeps = code, dependencies
	return p.result
}

func newTestRegistry(memory MemoryStore, python PythonRunner) *toolregistry.Registry {
	r := toolregistry.New()
	RegisterBuiltins(r, memory, python)
	return r
}

func TestMemoryHandlerRemembersAndReportsContent(t *testing.T) {
	mem := &stubMemory{}
	r := newTestRegistry(mem, nil)

	tc := r.NewToolCall("memory", map[string]any{
		"keyword": "k", "description": "d", "content": "c",
	})
	result := r.Call(nil, tc)

	assert.Equal(t, "The content: 'c' has been memorised.", result)
	assert.Equal(t, 1, mem.calls)
	assert.Equal(t, "k", mem.keyword)
	assert.Equal(t, "c", mem.content)
}

func TestMemoryHandlerWithoutCapabilityReturnsError(t *testing.T) {
	r := newTestRegistry(nil, nil)
	tc := r.NewToolCall("memory", map[string]any{"content": "c"})
	result := r.Call(nil, tc)
	assert.Empty(t, result)
	assert.Error(t, tc.Err)
}

func TestWriteFileThenReadFileRoundTrips(t *testing.T) {
	r := newTestRegistry(nil, nil)
	path := filepath.Join(t.TempDir(), "out.txt")

	writeTC := r.NewToolCall("write_file", map[string]any{"file_path": path, "content": "hello"})
	writeResult := r.Call(nil, writeTC)
	assert.Equal(t, "The content: 'hello' was written to the file: '"+path+"'", writeResult)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(raw))

	readTC := r.NewToolCall("read_file", map[string]any{"file_path": path})
	readResult := r.Call(nil, readTC)
	assert.Equal(t, "The file: '"+path+"' has been read with content: 'hello\n'", readResult)
}

func TestAppendFileAppendsToExistingContent(t *testing.T) {
	r := newTestRegistry(nil, nil)
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0644))

	tc := r.NewToolCall("append_file", map[string]any{"file_path": path, "content": "second"})
	result := r.Call(nil, tc)
	assert.Equal(t, "The content: 'second' was appended to the file: '"+path+"'", result)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(raw))
}

func TestReadFileWithMissingPathReturnsError(t *testing.T) {
	r := newTestRegistry(nil, nil)
	tc := r.NewToolCall("read_file", map[string]any{"file_path": filepath.Join(t.TempDir(), "missing.txt")})
	result := r.Call(nil, tc)
	assert.Empty(t, result)
	assert.Error(t, tc.Err)
}

func TestSendMessageReportsSuccess(t *testing.T) {
	r := newTestRegistry(nil, nil)
	tc := r.NewToolCall("send_message", map[string]any{"message": "hi there"})
	result := r.Call(nil, tc)
	assert.Equal(t, "The message: 'hi there' was successfully displayed", result)
}

func TestExecuteBashCommandReturnsSuccessOnEmptyOutput(t *testing.T) {
	r := newTestRegistry(nil, nil)
	tc := r.NewToolCall("execute_bash_command", map[string]any{"command": "true"})
	result := r.Call(nil, tc)
	assert.Equal(t, "The bash command: 'true' was executed with result: 'Success'", result)
}

func TestExecuteBashCommandReturnsStdout(t *testing.T) {
	r := newTestRegistry(nil, nil)
	tc := r.NewToolCall("execute_bash_command", map[string]any{"command": "echo hi"})
	result := r.Call(nil, tc)
	assert.Equal(t, "The bash command: 'echo hi' was executed with result: 'hi\n'", result)
}

func TestExecutePythonScriptDelegatesToRunner(t *testing.T) {
	py := &stubPython{result: "42\n"}
	r := newTestRegistry(nil, py)

	tc := r.NewToolCall("execute_python_script", map[string]any{
		"script": "print(42)", "dependencies": "numpy",
	})
	result := r.Call(nil, tc)

	assert.Equal(t, "print(42)", py.gotCode)
	assert.Equal(t, "numpy", py.gotDeps)
	assert.Equal(t, "The python script: 'print(42)' was executed with result: '42\n'", result)
}

func TestExecutePythonScriptWithoutCapabilityReturnsError(t *testing.T) {
	r := newTestRegistry(nil, nil)
	tc := r.NewToolCall("execute_python_script", map[string]any{"script": "print(1)"})
	result := r.Call(nil, tc)
	assert.Empty(t, result)
	assert.Error(t, tc.Err)
}

func TestWriteCatalogueProducesLoadableTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "native_tools.toml")
	require.NoError(t, WriteCatalogue(path))

	var doc catalogueFileTOML
	_, err := toml.DecodeFile(path, &doc)
	require.NoError(t, err)

	require.Len(t, doc.Instruction, len(builtinCatalogue))
	names := make(map[string]bool, len(doc.Instruction))
	for _, entry := range doc.Instruction {
		names[entry.Name] = true
	}
	for _, want := range []string{"memory", "read_file", "write_file", "append_file", "send_message", "user_input", "execute_bash_command", "execute_python_script"} {
		assert.True(t, names[want], "missing catalogue entry %q", want)
	}
}
