// Package agent wraps the external agent-runner collaborator. A run is one
// subprocess invocation against a prompt artifact; the runner captures
// success/failure and persists the structured output stream when requested.
package agent

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Sandbox modes accepted by the agent runner.
const (
	SandboxReadOnly       = "read-only"
	SandboxWorkspaceWrite = "workspace-write"
)

// ExecSpec describes one agent invocation.
type ExecSpec struct {
	// Cwd is the working directory for the agent.
	Cwd string
	// PromptPath is the prompt artifact fed to the agent.
	PromptPath string
	// OutputPath receives the agent's last message.
	OutputPath string
	// JSONOutputPath, when non-empty, receives the structured output
	// stream captured from stdout.
	JSONOutputPath string
	// Sandbox is the permission mode for the run.
	Sandbox string
	// SchemaPath, when non-empty, constrains structured output to a
	// JSON schema.
	SchemaPath string
}

// Result reports the outcome of one agent invocation.
type Result struct {
	StatusOK bool
}

// Runner executes agent invocations. The CLI implementation shells out to
// the configured binary; tests substitute a fake.
type Runner interface {
	Run(spec ExecSpec) (Result, error)
}

// CLIRunner invokes the agent binary as a subprocess.
type CLIRunner struct {
	// Binary is the executable name, "codex" by default.
	Binary string
	// PromptFlag is the flag carrying the prompt file path. Overridable
	// because agent-runner versions have disagreed on its name.
	PromptFlag string
	// ExtraArgs holds whitespace-separated extra arguments appended to
	// every invocation.
	ExtraArgs string
}

// NewCLIRunner builds a CLIRunner from configuration, honoring the
// CODEX_SDD_PROMPT_FLAG and CODEX_SDD_EXEC_ARGS environment overrides.
func NewCLIRunner(binary, promptFlag, extraArgs string) *CLIRunner {
	if env := os.Getenv("CODEX_SDD_PROMPT_FLAG"); env != "" {
		promptFlag = env
	}
	if env := os.Getenv("CODEX_SDD_EXEC_ARGS"); env != "" {
		extraArgs = env
	}
	if binary == "" {
		binary = "codex"
	}
	if promptFlag == "" {
		promptFlag = "--prompt-file"
	}
	return &CLIRunner{Binary: binary, PromptFlag: promptFlag, ExtraArgs: extraArgs}
}

// Run executes the agent once. A non-zero exit is reported through
// Result.StatusOK, not an error: the caller decides whether a failed unit
// is fatal. Errors are reserved for failures to start or to persist the
// captured output.
func (r *CLIRunner) Run(spec ExecSpec) (Result, error) {
	args := []string{
		"exec",
		"--sandbox", spec.Sandbox,
		"--cd", spec.Cwd,
		"--output-last-message", spec.OutputPath,
		r.PromptFlag, spec.PromptPath,
	}
	if spec.SchemaPath != "" {
		args = append(args, "--output-schema", spec.SchemaPath)
	}
	if spec.JSONOutputPath != "" {
		args = append(args, "--json")
	}
	if extra := strings.TrimSpace(r.ExtraArgs); extra != "" {
		args = append(args, strings.Fields(extra)...)
	}

	cmd := exec.Command(r.Binary, args...)
	stdout, err := cmd.Output()
	statusOK := true
	if err != nil {
		// An exit error still carries captured stdout; anything else
		// means the binary could not run at all.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("run %s: %w", r.Binary, err)
		}
		statusOK = false
	}

	if spec.JSONOutputPath != "" && len(stdout) > 0 {
		if err := os.MkdirAll(filepath.Dir(spec.JSONOutputPath), 0755); err != nil {
			return Result{}, fmt.Errorf("create %s: %w", filepath.Dir(spec.JSONOutputPath), err)
		}
		if err := os.WriteFile(spec.JSONOutputPath, stdout, 0644); err != nil {
			return Result{}, fmt.Errorf("write %s: %w", spec.JSONOutputPath, err)
		}
	}

	return Result{StatusOK: statusOK}, nil
}

// OutputPaths returns the last-message and structured-output paths for a
// named run within a change's run directory.
func OutputPaths(runsDir, changeID, name string) (outputPath, jsonPath string) {
	dir := filepath.Join(runsDir, changeID)
	return filepath.Join(dir, name+".md"), filepath.Join(dir, name+".jsonl")
}
