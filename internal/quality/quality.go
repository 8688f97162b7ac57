// Package quality wraps the test and coverage collaborators. Each runner
// executes a tool inside an agent worktree and captures its output; the
// coverage runners additionally extract a percentage from the output.
package quality

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns stdout and stderr separately.
	Run(dir string, name string, args ...string) (stdout, stderr []byte, err error)
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// Run executes a command, capturing stdout and stderr separately.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.Output()
	return stdout, []byte(stderr.String()), err
}

// TestResult reports one test suite execution.
type TestResult struct {
	Success bool
	Stdout  string
	Stderr  string
}

// CoverageResult reports one coverage tool execution. Percent is nil when
// no percentage token was found in the output.
type CoverageResult struct {
	Stdout  string
	Percent *float64
}

// Runner executes the test suite and coverage tools in a directory.
type Runner struct {
	executor CommandExecutor
}

// NewRunner creates a Runner using the CLI executor.
func NewRunner() *Runner {
	return &Runner{executor: &CLICommandExecutor{}}
}

// NewRunnerWithExecutor creates a Runner with a custom executor for tests.
func NewRunnerWithExecutor(executor CommandExecutor) *Runner {
	return &Runner{executor: executor}
}

// RunTests executes the test suite in dir, capturing output. A failing
// suite is reported through Success, not an error: the caller records the
// outcome in the run metrics either way.
func (r *Runner) RunTests(dir string) (*TestResult, error) {
	stdout, stderr, err := r.executor.Run(dir, "cargo", "test")
	success := err == nil
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.NewSubprocessError("cargo", []string{"test"}, string(stderr), err)
		}
	}
	return &TestResult{
		Success: success,
		Stdout:  string(stdout),
		Stderr:  string(stderr),
	}, nil
}

// EnsureSuccess converts a failed test result into an error.
func EnsureSuccess(result *TestResult) error {
	if result.Success {
		return nil
	}
	return errors.New("tests failed")
}

// RunLLVMCov executes the llvm-cov coverage tool in dir.
func (r *Runner) RunLLVMCov(dir string) (*CoverageResult, error) {
	return r.runCoverage(dir, "llvm-cov", "--summary")
}

// RunTarpaulin executes the tarpaulin coverage tool in dir.
func (r *Runner) RunTarpaulin(dir string) (*CoverageResult, error) {
	return r.runCoverage(dir, "tarpaulin", "--quiet")
}

func (r *Runner) runCoverage(dir string, args ...string) (*CoverageResult, error) {
	stdout, _, err := r.executor.Run(dir, "cargo", args...)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.NewSubprocessError("cargo", args, "", err)
		}
	}
	out := string(stdout)
	return &CoverageResult{Stdout: out, Percent: ParsePercent(out)}, nil
}

// ParsePercent extracts the first whitespace-delimited token ending in a
// percent sign and returns its numeric value, or nil when no such token
// exists.
func ParsePercent(output string) *float64 {
	for _, token := range strings.Fields(output) {
		stripped, ok := strings.CutSuffix(token, "%")
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(stripped, 64)
		if err != nil {
			continue
		}
		return &val
	}
	return nil
}
