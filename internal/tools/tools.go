// Package tools implements the built-in tool handlers (spec.md §4.K):
// stateless adapters onto the host filesystem, shell, stdin/stdout,
// short-term memory, and the sandboxed CodeExecutor. Grounded verbatim on
// original_source/src/native_tools.h's tool_* functions (response
// message wording, parameter names) and original_source/src/core.cpp's
// read_file/write_file/append_file/user_input helpers.
package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/BurntSushi/toml"

	"github.com/mentals-ai/mentals/internal/toolregistry"
)

// MemoryStore is the short_term_memory capability the memory tool
// handler writes through (spec.md §4.I's executor_state/
// short_term_memory).
type MemoryStore interface {
	Remember(keyword, description, content string)
}

// PythonRunner is the CodeExecutor capability the execute_python_script
// handler delegates to.
type PythonRunner interface {
	RunPythonCode(ctx context.Context, code, dependencies string) string
}

// RegisterBuiltins registers every built-in tool handler (spec.md §4.K)
// against r. memory and python may be nil; the memory and
// execute_python_script handlers then report that the capability is
// unavailable instead of panicking.
func RegisterBuiltins(r *toolregistry.Registry, memory MemoryStore, python PythonRunner) {
	r.Register("memory", memoryHandler(memory))
	r.Register("read_file", readFileHandler)
	r.Register("write_file", writeFileHandler)
	r.Register("append_file", appendFileHandler)
	r.Register("send_message", sendMessageHandler)
	r.Register("user_input", userInputHandler)
	r.Register("execute_bash_command", executeBashCommandHandler)
	r.Register("execute_python_script", executePythonScriptHandler(python))
}

type catalogueParamTOML struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

type catalogueEntryTOML struct {
	Name        string                `toml:"name"`
	Description string                `toml:"description"`
	Parameters  []catalogueParamTOML `toml:"parameters"`
}

type catalogueFileTOML struct {
	Instruction []catalogueEntryTOML `toml:"instruction"`
}

// builtinCatalogue describes every handler RegisterBuiltins wires up, in
// the shape native_tools.toml expects (spec.md §6). Kept alongside the
// handlers themselves so the catalogue never drifts from what's actually
// registered.
var builtinCatalogue = []catalogueEntryTOML{
	{Name: "memory", Description: "Remember a piece of content under a keyword for later recall.", Parameters: []catalogueParamTOML{
		{Name: "keyword", Description: "Short key this memory can be recalled by."},
		{Name: "description", Description: "Human-readable description of what is being remembered."},
		{Name: "content", Description: "The content to memorise."},
	}},
	{Name: "read_file", Description: "Read the contents of a file.", Parameters: []catalogueParamTOML{
		{Name: "file_path", Description: "Path to the file to read."},
	}},
	{Name: "write_file", Description: "Write content to a file, overwriting it.", Parameters: []catalogueParamTOML{
		{Name: "file_path", Description: "Path to the file to write."},
		{Name: "content", Description: "Content to write to the file."},
	}},
	{Name: "append_file", Description: "Append content to the end of a file.", Parameters: []catalogueParamTOML{
		{Name: "file_path", Description: "Path to the file to append to."},
		{Name: "content", Description: "Content to append to the file."},
	}},
	{Name: "send_message", Description: "Display a message to the user.", Parameters: []catalogueParamTOML{
		{Name: "message", Description: "The message to display."},
	}},
	{Name: "user_input", Description: "Prompt the user and read a line of input.", Parameters: []catalogueParamTOML{
		{Name: "prompt", Description: "The prompt to show the user."},
	}},
	{Name: "execute_bash_command", Description: "Execute a shell command and return its output.", Parameters: []catalogueParamTOML{
		{Name: "command", Description: "The shell command to execute."},
	}},
	{Name: "execute_python_script", Description: "Execute a Python script in a sandboxed virtual environment.", Parameters: []catalogueParamTOML{
		{Name: "script", Description: "The Python source to execute."},
		{Name: "dependencies", Description: "Optional space-separated pip package list."},
	}},
}

// WriteCatalogue regenerates a native_tools.toml file describing every
// built-in handler RegisterBuiltins wires up, mirroring main.cpp's
// --tools-write flag in the original C++ implementation.
func WriteCatalogue(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tools: create catalogue file %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(catalogueFileTOML{Instruction: builtinCatalogue}); err != nil {
		return fmt.Errorf("tools: encode catalogue file %s: %w", path, err)
	}
	return nil
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func memoryHandler(memory MemoryStore) toolregistry.HandlerFunc {
	return func(handle toolregistry.Handle, params map[string]any) (string, error) {
		if memory == nil {
			return "", fmt.Errorf("tools: memory capability is not configured")
		}
		keyword := stringParam(params, "keyword")
		description := stringParam(params, "description")
		content := stringParam(params, "content")
		memory.Remember(keyword, description, content)
		return fmt.Sprintf("The content: '%s' has been memorised.", content), nil
	}
}

func readFileHandler(handle toolregistry.Handle, params map[string]any) (string, error) {
	filePath := stringParam(params, "file_path")
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("tools: read_file %s: %w", filePath, err)
	}
	return fmt.Sprintf("The file: '%s' has been read with content: '%s'", filePath, string(content)), nil
}

func writeFileHandler(handle toolregistry.Handle, params map[string]any) (string, error) {
	filePath := stringParam(params, "file_path")
	content := stringParam(params, "content")
	if err := os.WriteFile(filePath, []byte(content+"\n"), 0644); err != nil {
		return "", fmt.Errorf("tools: write_file %s: %w", filePath, err)
	}
	return fmt.Sprintf("The content: '%s' was written to the file: '%s'", content, filePath), nil
}

func appendFileHandler(handle toolregistry.Handle, params map[string]any) (string, error) {
	filePath := stringParam(params, "file_path")
	content := stringParam(params, "content")

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("tools: append_file %s: %w", filePath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content + "\n"); err != nil {
		return "", fmt.Errorf("tools: append_file %s: %w", filePath, err)
	}
	return fmt.Sprintf("The content: '%s' was appended to the file: '%s'", content, filePath), nil
}

func sendMessageHandler(handle toolregistry.Handle, params map[string]any) (string, error) {
	message := stringParam(params, "message")
	fmt.Println("[message]", message)
	return fmt.Sprintf("The message: '%s' was successfully displayed", message), nil
}

func userInputHandler(handle toolregistry.Handle, params map[string]any) (string, error) {
	prompt := stringParam(params, "prompt")
	fmt.Print("[question] ", prompt, "\n> ")

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return fmt.Sprintf("User message is: '%s'", line), nil
}

func executeBashCommandHandler(handle toolregistry.Handle, params map[string]any) (string, error) {
	command := stringParam(params, "command")
	cmd := exec.Command("sh", "-c", command)
	out, _ := cmd.CombinedOutput()

	output := string(out)
	if output == "" {
		output = "Success"
	}
	return fmt.Sprintf("The bash command: '%s' was executed with result: '%s'", command, output), nil
}

func executePythonScriptHandler(python PythonRunner) toolregistry.HandlerFunc {
	return func(handle toolregistry.Handle, params map[string]any) (string, error) {
		if python == nil {
			return "", fmt.Errorf("tools: python capability is not configured")
		}
		script := stringParam(params, "script")
		dependencies := stringParam(params, "dependencies")
		result := python.RunPythonCode(context.Background(), script, dependencies)
		return fmt.Sprintf("The python script: '%s' was executed with result: '%s'", script, result), nil
	}
}
