package scaffold

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/codex-sdd/internal/index"
)

func TestEnsureRepoScaffold(t *testing.T) {
	root := t.TempDir()
	if err := EnsureRepoScaffold(root); err != nil {
		t.Fatalf("EnsureRepoScaffold failed: %v", err)
	}
	for _, rel := range []string{
		"docs/sdd/specs",
		"docs/sdd/changes",
		"docs/sdd/README.md",
	} {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	// Re-running must not clobber an edited README.
	readme := filepath.Join(root, "docs", "sdd", "README.md")
	if err := os.WriteFile(readme, []byte("edited"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := EnsureRepoScaffold(root); err != nil {
		t.Fatalf("second EnsureRepoScaffold failed: %v", err)
	}
	data, _ := os.ReadFile(readme)
	if string(data) != "edited" {
		t.Error("existing README was overwritten")
	}
}

func TestEnsureAgentsMD(t *testing.T) {
	root := t.TempDir()
	created, err := EnsureAgentsMD(root)
	if err != nil {
		t.Fatalf("EnsureAgentsMD failed: %v", err)
	}
	if !created {
		t.Error("expected creation on first call")
	}
	created, err = EnsureAgentsMD(root)
	if err != nil {
		t.Fatalf("second EnsureAgentsMD failed: %v", err)
	}
	if created {
		t.Error("expected no-op on second call")
	}
}

func TestWritePrompt(t *testing.T) {
	home := t.TempDir()
	path, err := WritePrompt(home)
	if err != nil {
		t.Fatalf("WritePrompt failed: %v", err)
	}
	if path != filepath.Join(home, "prompts", PromptPlansFilename) {
		t.Errorf("unexpected prompt path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("prompt not written: %v", err)
	}
	if !strings.Contains(string(data), "name: plans") {
		t.Error("prompt missing frontmatter")
	}
}

func TestEnsureChangeScaffold(t *testing.T) {
	changeDir := filepath.Join(t.TempDir(), "001_demo")
	if err := EnsureChangeScaffold(changeDir); err != nil {
		t.Fatalf("EnsureChangeScaffold failed: %v", err)
	}
	for _, name := range []string{
		"10_repo_digest.md", "20_review.md", "40_tasks.md",
		"50_test_plan.md", "90_decision.md",
		"context/README.md", "context/repo_tree.txt", "context/file_index.json",
	} {
		if _, err := os.Stat(filepath.Join(changeDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// Re-scaffolding preserves generated content.
	digest := filepath.Join(changeDir, "10_repo_digest.md")
	if err := os.WriteFile(digest, []byte("real digest"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := EnsureChangeScaffold(changeDir); err != nil {
		t.Fatalf("second EnsureChangeScaffold failed: %v", err)
	}
	data, _ := os.ReadFile(digest)
	if string(data) != "real digest" {
		t.Error("generated artifact was overwritten")
	}
}

func TestEnsureSchemas(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureSchemas(dir); err != nil {
		t.Fatalf("EnsureSchemas failed: %v", err)
	}
	for _, name := range []string{"reader.json", "review.json", "tasks.json", "select.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing schema %s: %v", name, err)
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Errorf("schema %s is not valid JSON: %v", name, err)
		}
	}

	// Local edits survive.
	edited := filepath.Join(dir, "reader.json")
	if err := os.WriteFile(edited, []byte(`{"edited": true}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := EnsureSchemas(dir); err != nil {
		t.Fatalf("second EnsureSchemas failed: %v", err)
	}
	data, _ := os.ReadFile(edited)
	if !strings.Contains(string(data), "edited") {
		t.Error("edited schema was overwritten")
	}
}

func TestRenderReaderPrompt(t *testing.T) {
	shard := []index.FileEntry{{Path: "src/main.rs"}, {Path: "src/lib.rs"}}
	prompt := RenderReaderPrompt("001_demo", 1, 4, shard)
	for _, want := range []string{"change_id: 001_demo", "shard: 2/4", "- src/main.rs", "- src/lib.rs"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestComposeRepoDigest(t *testing.T) {
	runsDir := t.TempDir()
	runDir := filepath.Join(runsDir, "001_demo")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	// Shard 1 produced no output; the digest skips it.
	if err := os.WriteFile(filepath.Join(runDir, "reader_0.md"), []byte("first shard"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "reader_2.md"), []byte("third shard"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	digest, err := ComposeRepoDigest(runsDir, "001_demo", 3)
	if err != nil {
		t.Fatalf("ComposeRepoDigest failed: %v", err)
	}
	if !strings.Contains(digest, "first shard") || !strings.Contains(digest, "third shard") {
		t.Errorf("digest missing shard output:\n%s", digest)
	}
	if strings.Contains(digest, "## Shard 1\n") {
		t.Errorf("digest should skip absent shard output:\n%s", digest)
	}
}
