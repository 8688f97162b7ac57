// Package paths resolves the on-disk layout used by codex-sdd: the global
// codex home, the repository-local documentation tree under docs/sdd, and
// the tool's private state directory under .codex/sdd.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Directory and file names that make up the tool's layout.
const (
	DocsSDDDir    = "docs/sdd"
	ChangesDir    = "docs/sdd/changes"
	SpecsDir      = "docs/sdd/specs"
	ArchiveDir    = "docs/sdd/archive"
	StateDirRel   = ".codex/sdd"
	StateFileName = "state.json"
)

// GlobalPaths holds machine-global locations shared across repositories.
type GlobalPaths struct {
	CodexHome string
}

// ResolveCodexHome returns the codex home directory: $CODEX_HOME if set,
// otherwise ~/.codex.
func ResolveCodexHome() (string, error) {
	if path := os.Getenv("CODEX_HOME"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory not found: %w", err)
	}
	return filepath.Join(home, ".codex"), nil
}

// LoadGlobal resolves the global paths.
func LoadGlobal() (*GlobalPaths, error) {
	home, err := ResolveCodexHome()
	if err != nil {
		return nil, err
	}
	return &GlobalPaths{CodexHome: home}, nil
}

// RepoPaths holds every repository-relative location the tool touches.
type RepoPaths struct {
	RepoRoot     string
	DocsSDD      string
	DocsChanges  string
	DocsSpecs    string
	DocsArchive  string
	StateDir     string
	StatePath    string
	RunsDir      string
	WorktreesDir string
	SchemasDir   string
}

// NewRepoPaths builds the path layout rooted at the given repository root.
func NewRepoPaths(repoRoot string) *RepoPaths {
	stateDir := filepath.Join(repoRoot, ".codex", "sdd")
	return &RepoPaths{
		RepoRoot:     repoRoot,
		DocsSDD:      filepath.Join(repoRoot, "docs", "sdd"),
		DocsChanges:  filepath.Join(repoRoot, "docs", "sdd", "changes"),
		DocsSpecs:    filepath.Join(repoRoot, "docs", "sdd", "specs"),
		DocsArchive:  filepath.Join(repoRoot, "docs", "sdd", "archive"),
		StateDir:     stateDir,
		StatePath:    filepath.Join(stateDir, StateFileName),
		RunsDir:      filepath.Join(stateDir, "runs"),
		WorktreesDir: filepath.Join(stateDir, "worktrees"),
		SchemasDir:   filepath.Join(stateDir, "schemas"),
	}
}

// ChangeDir returns the documentation directory for a change, named
// "<id>_<name>" under docs/sdd/changes.
func (p *RepoPaths) ChangeDir(changeID, name string) string {
	return filepath.Join(p.DocsChanges, fmt.Sprintf("%s_%s", changeID, name))
}

// FindChangeDir locates the existing change directory for a change ID by
// scanning docs/sdd/changes for a directory named "<id>_*".
func (p *RepoPaths) FindChangeDir(changeID string) (string, error) {
	entries, err := os.ReadDir(p.DocsChanges)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p.DocsChanges, err)
	}
	prefix := changeID + "_"
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			return filepath.Join(p.DocsChanges, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("change workspace not found for %s", changeID)
}

// ChangeContextDir returns the context directory inside a change directory,
// where prompts and the persisted file index live.
func (p *RepoPaths) ChangeContextDir(changeDir string) string {
	return filepath.Join(changeDir, "context")
}

// RunDir returns the run-artifact directory for a change.
func (p *RepoPaths) RunDir(changeID string) string {
	return filepath.Join(p.RunsDir, changeID)
}

// WorktreeRoot returns the directory holding a change's agent worktrees.
func (p *RepoPaths) WorktreeRoot(changeID string) string {
	return filepath.Join(p.WorktreesDir, changeID)
}

// Slugify converts a free-form change name into a lowercase hyphenated slug.
// Runs of non-alphanumeric characters collapse into a single hyphen; an
// empty result falls back to "change".
func Slugify(name string) string {
	var b strings.Builder
	lastDash := false
	for _, ch := range strings.ToLower(name) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "change"
	}
	return slug
}
