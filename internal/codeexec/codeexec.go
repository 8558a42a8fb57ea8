// Package codeexec implements the CodeExecutor capability (spec.md §6): a
// sandboxed Python runner backing the execute_python_script tool handler
// (§4.K). Grounded on original_source/src/code_interpreter.cpp: a
// per-instance virtual environment, optional dependency install, code
// written to a temp file and run through the venv's interpreter, combined
// stdout+stderr returned as a single string. No library in the example
// pack targets Python sandboxing, so this stays on stdlib os/exec —
// justified: there is no Python-venv-orchestration package anywhere in
// the corpus to ground an alternative on.
package codeexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Executor runs Python code inside a per-instance virtual environment.
type Executor struct {
	pythonExe string
	envDir    string
}

// New locates a system Python interpreter. It returns an Executor even
// when no interpreter is found; RunPythonCode reports that condition as
// its result string rather than failing construction, matching the
// teacher's own tolerant "Python executable not found." behavior.
func New() *Executor {
	return &Executor{pythonExe: findPythonExecutable(), envDir: "python_env"}
}

func findPythonExecutable() string {
	for _, candidate := range []string{"python3", "python"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// venvPython returns the path to the interpreter inside the virtual
// environment, OS-appropriate.
func (e *Executor) venvPython() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.envDir, "Scripts", "python.exe")
	}
	return filepath.Join(e.envDir, "bin", "python3")
}

// CreateVirtualEnvironment creates the sandboxed venv, if a Python
// interpreter is available.
func (e *Executor) CreateVirtualEnvironment(ctx context.Context) error {
	if e.pythonExe == "" {
		return fmt.Errorf("codeexec: no python executable found")
	}
	cmd := exec.CommandContext(ctx, e.pythonExe, "-m", "venv", e.envDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("codeexec: create virtual environment: %w: %s", err, string(out))
	}
	return nil
}

// DeleteVirtualEnvironment removes the sandboxed venv.
func (e *Executor) DeleteVirtualEnvironment() error {
	return os.RemoveAll(e.envDir)
}

// RunPythonCode writes code to a temp file, optionally installs
// dependencies into the venv first, runs it through the venv's
// interpreter, and returns combined stdout+stderr. Errors surface in the
// returned string rather than as a Go error (spec.md §7: shell/Python
// runtime errors are captured as the tool's string result, never fatal).
func (e *Executor) RunPythonCode(ctx context.Context, code, dependencies string) string {
	if e.pythonExe == "" {
		return "Python executable not found."
	}

	if dependencies != "" {
		if errOut := e.installDependencies(ctx, dependencies); errOut != "" {
			return "Failed to install dependencies: " + errOut
		}
	}

	tempFile, err := os.CreateTemp("", "mentals_codeexec_*.py")
	if err != nil {
		return "Failed to create temporary file."
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(code); err != nil {
		tempFile.Close()
		return "Failed to create temporary file."
	}
	tempFile.Close()

	python := e.venvPython()
	if _, err := os.Stat(python); err != nil {
		python = e.pythonExe
	}

	cmd := exec.CommandContext(ctx, python, tempFile.Name())
	out, _ := cmd.CombinedOutput()
	return string(out)
}

func (e *Executor) installDependencies(ctx context.Context, dependencies string) string {
	python := e.venvPython()
	if _, err := os.Stat(python); err != nil {
		python = e.pythonExe
	}

	args := append([]string{"-m", "pip", "install"}, strings.Fields(dependencies)...)
	cmd := exec.CommandContext(ctx, python, args...)
	out, _ := cmd.CombinedOutput()
	if strings.Contains(string(out), "ERROR") {
		return string(out)
	}
	return ""
}
