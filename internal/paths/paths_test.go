package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveCodexHome(t *testing.T) {
	t.Setenv("CODEX_HOME", "/custom/codex")
	home, err := ResolveCodexHome()
	if err != nil {
		t.Fatalf("ResolveCodexHome failed: %v", err)
	}
	if home != "/custom/codex" {
		t.Errorf("expected env override, got %q", home)
	}

	t.Setenv("CODEX_HOME", "")
	home, err = ResolveCodexHome()
	if err != nil {
		t.Fatalf("ResolveCodexHome failed: %v", err)
	}
	if filepath.Base(home) != ".codex" {
		t.Errorf("expected ~/.codex fallback, got %q", home)
	}
}

func TestNewRepoPaths_Layout(t *testing.T) {
	p := NewRepoPaths("/repo")
	tests := []struct {
		got  string
		want string
	}{
		{p.DocsSDD, "/repo/docs/sdd"},
		{p.DocsChanges, "/repo/docs/sdd/changes"},
		{p.DocsSpecs, "/repo/docs/sdd/specs"},
		{p.DocsArchive, "/repo/docs/sdd/archive"},
		{p.StateDir, "/repo/.codex/sdd"},
		{p.StatePath, "/repo/.codex/sdd/state.json"},
		{p.RunsDir, "/repo/.codex/sdd/runs"},
		{p.WorktreesDir, "/repo/.codex/sdd/worktrees"},
		{p.SchemasDir, "/repo/.codex/sdd/schemas"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
	if got := p.ChangeDir("001", "fix-parser"); got != "/repo/docs/sdd/changes/001_fix-parser" {
		t.Errorf("ChangeDir = %q", got)
	}
	if got := p.RunDir("001"); got != "/repo/.codex/sdd/runs/001" {
		t.Errorf("RunDir = %q", got)
	}
	if got := p.WorktreeRoot("001"); got != "/repo/.codex/sdd/worktrees/001" {
		t.Errorf("WorktreeRoot = %q", got)
	}
}

func TestFindChangeDir(t *testing.T) {
	root := t.TempDir()
	p := NewRepoPaths(root)
	if err := os.MkdirAll(filepath.Join(p.DocsChanges, "001_fix-parser"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(p.DocsChanges, "002_other"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	// A stray file with a matching prefix must not be picked up.
	if err := os.WriteFile(filepath.Join(p.DocsChanges, "003_notes.md"), []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	dir, err := p.FindChangeDir("001")
	if err != nil {
		t.Fatalf("FindChangeDir failed: %v", err)
	}
	if filepath.Base(dir) != "001_fix-parser" {
		t.Errorf("expected 001_fix-parser, got %q", dir)
	}

	if _, err := p.FindChangeDir("003"); err == nil {
		t.Error("a file is not a change directory")
	}
	if _, err := p.FindChangeDir("999"); err == nil {
		t.Error("expected error for unknown change")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fix the Parser", "fix-the-parser"},
		{"v2.0 rollout!", "v2-0-rollout"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"already-slugged", "already-slugged"},
		{"___", "change"},
		{"", "change"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
