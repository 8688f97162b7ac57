// Package git wraps the version-control collaborator behind a small
// executor seam. The CLI implementation shells out to git; tests supply a
// mock executor so no git invocation (or repository) is needed.
package git

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

// CommandExecutor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type CommandExecutor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Client performs git operations rooted at a repository directory.
type Client struct {
	repoDir  string
	executor CommandExecutor
}

// NewClient creates a Client operating on the given repository directory.
func NewClient(repoDir string) *Client {
	return &Client{repoDir: repoDir, executor: &CLICommandExecutor{}}
}

// NewClientWithExecutor creates a Client with a custom executor.
// This is primarily useful for testing.
func NewClientWithExecutor(repoDir string, executor CommandExecutor) *Client {
	return &Client{repoDir: repoDir, executor: executor}
}

// RepoDir returns the directory the client operates on.
func (c *Client) RepoDir() string { return c.repoDir }

// InDir returns a Client bound to a different working directory but sharing
// the same executor. Used for running diffs inside agent worktrees.
func (c *Client) InDir(dir string) *Client {
	return &Client{repoDir: dir, executor: c.executor}
}

// git runs a git subcommand and surfaces non-success as a SubprocessError.
func (c *Client) git(args ...string) ([]byte, error) {
	out, err := c.executor.Run(c.repoDir, "git", args...)
	if err != nil {
		return out, errors.NewSubprocessError("git", args, strings.TrimSpace(string(out)), err)
	}
	return out, nil
}

// FindRoot resolves the repository root containing dir, or returns
// ErrNotGitRepository. The root is required; there is no fallback mode.
func FindRoot(dir string, executor CommandExecutor) (string, error) {
	out, err := executor.Run(dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.ErrNotGitRepository
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return "", errors.ErrNotGitRepository
	}
	return root, nil
}

// ListTracked returns all tracked paths, NUL-delimited under the hood so
// unusual file names survive. Failure to enumerate is fatal to indexing.
func (c *Client) ListTracked() ([]string, error) {
	out, err := c.git("ls-files", "-z")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list git files")
	}
	return splitNul(out), nil
}

// ListUntracked returns untracked-but-not-ignored paths. An empty result
// is returned on failure; untracked enumeration is best-effort.
func (c *Client) ListUntracked() []string {
	out, err := c.git("ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil
	}
	return splitNul(out)
}

// splitNul splits NUL-delimited output into path strings, dropping empties.
func splitNul(data []byte) []string {
	var paths []string
	for _, chunk := range bytes.Split(data, []byte{0}) {
		if len(chunk) == 0 {
			continue
		}
		paths = append(paths, string(chunk))
	}
	return paths
}

// CurrentCommit resolves HEAD to a commit hash.
func (c *Client) CurrentCommit() (string, error) {
	out, err := c.git("rev-parse", "HEAD")
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve HEAD")
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveRef verifies that a ref exists and returns its commit hash,
// or ErrBaseRefNotFound.
func (c *Client) ResolveRef(ref string) (string, error) {
	out, err := c.git("rev-parse", "--verify", ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrBaseRefNotFound, ref)
	}
	return strings.TrimSpace(string(out)), nil
}

// DiffNames returns the paths changed between base and the working tree.
func (c *Client) DiffNames(base string) ([]string, error) {
	out, err := c.git("diff", "--name-only", base)
	if err != nil {
		return nil, errors.Wrap(err, "git diff failed")
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// DiffNumstat returns total lines added and removed between base and the
// working tree. Unparseable counts (binary files report "-") count as zero.
func (c *Client) DiffNumstat(base string) (added, removed uint64, err error) {
	out, err := c.git("diff", "--numstat", base)
	if err != nil {
		return 0, 0, errors.Wrap(err, "git diff failed")
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if n, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			added += n
		}
		if n, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
			removed += n
		}
	}
	return added, removed, nil
}

// CreateWorktree creates a worktree at path on a new branch. An existing
// path is treated as already created and left untouched.
func (c *Client) CreateWorktree(branch, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if _, err := c.git("worktree", "add", "-b", branch, path); err != nil {
		return errors.Wrap(err, "git worktree failed")
	}
	return nil
}

// ListWorktrees returns the paths of all worktrees attached to the repo.
func (c *Client) ListWorktrees() ([]string, error) {
	out, err := c.git("worktree", "list", "--porcelain")
	if err != nil {
		return nil, errors.Wrap(err, "git worktree list failed")
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "worktree "); ok {
			paths = append(paths, rest)
		}
	}
	return paths, nil
}

// MergeBranch merges a branch into the current branch, optionally with
// --no-ff to preserve the branch point.
func (c *Client) MergeBranch(branch string, noFF bool) error {
	args := []string{"merge"}
	if noFF {
		args = append(args, "--no-ff")
	}
	args = append(args, branch)
	if _, err := c.git(args...); err != nil {
		return errors.Wrap(err, "git merge failed")
	}
	return nil
}

// CherryPick cherry-picks a branch tip onto the current branch, recording
// the source with -x.
func (c *Client) CherryPick(branch string) error {
	if _, err := c.git("cherry-pick", "-x", branch); err != nil {
		return errors.Wrap(err, "git cherry-pick failed")
	}
	return nil
}

// MoveDir renames a directory tree, creating the destination parent.
// Used to archive a change directory on finalize.
func MoveDir(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("move change dir: %w", err)
	}
	return nil
}
