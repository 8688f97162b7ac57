package gate

import (
	"testing"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

func TestCheck(t *testing.T) {
	completeArtifacts := []string{
		"docs/sdd/changes/001_demo/90_decision.md",
		"docs/sdd/changes/001_demo/40_tasks.md",
		"docs/sdd/changes/001_demo/50_test_plan.md",
	}

	tests := []struct {
		name    string
		changed []string
		wantErr error
	}{
		{
			name:    "empty change set passes",
			changed: nil,
			wantErr: nil,
		},
		{
			name:    "docs-only passes unconditionally",
			changed: []string{"docs/readme.md", "docs/sdd/specs/core.md"},
			wantErr: nil,
		},
		{
			name:    "non-code non-docs passes",
			changed: []string{".github/workflows/ci.yml", "scripts/setup.sh"},
			wantErr: nil,
		},
		{
			name:    "code without spec update rejected",
			changed: append([]string{"src/main.rs"}, completeArtifacts...),
			wantErr: errors.ErrSpecUpdateRequired,
		},
		{
			name: "code with spec but incomplete artifacts rejected",
			changed: []string{
				"src/main.rs",
				"docs/sdd/specs/core.md",
				"docs/sdd/changes/001_demo/90_decision.md",
				"docs/sdd/changes/001_demo/40_tasks.md",
			},
			wantErr: errors.ErrArtifactsRequired,
		},
		{
			name: "code with spec and complete artifacts passes",
			changed: append([]string{
				"src/main.rs",
				"docs/sdd/specs/core.md",
			}, completeArtifacts...),
			wantErr: nil,
		},
		{
			name: "artifacts split across change dirs rejected",
			changed: []string{
				"src/main.rs",
				"docs/sdd/specs/core.md",
				"docs/sdd/changes/001_demo/90_decision.md",
				"docs/sdd/changes/001_demo/40_tasks.md",
				"docs/sdd/changes/002_other/50_test_plan.md",
			},
			wantErr: errors.ErrArtifactsRequired,
		},
		{
			name: "build manifest counts as code",
			changed: []string{
				"Cargo.toml",
				"docs/sdd/changes/001_demo/90_decision.md",
			},
			wantErr: errors.ErrSpecUpdateRequired,
		},
		{
			name: "tests directory counts as code",
			changed: append([]string{
				"tests/integration.rs",
				"docs/sdd/specs/core.md",
			}, completeArtifacts...),
			wantErr: nil,
		},
		{
			name: "spec must be a markdown file",
			changed: append([]string{
				"src/main.rs",
				"docs/sdd/specs/core.txt",
			}, completeArtifacts...),
			wantErr: errors.ErrSpecUpdateRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.changed)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected pass, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.IsGateViolation(err) {
				t.Errorf("rejection should be a gate violation, got %v", err)
			}
		})
	}
}

func TestIsCodePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/lib.rs", true},
		{"tests/smoke.rs", true},
		{"Cargo.toml", true},
		{"Cargo.lock", true},
		{"srcdir/file.rs", false},
		{"sub/Cargo.toml", false},
		{"docs/src/page.md", false},
	}
	for _, tt := range tests {
		if got := IsCodePath(tt.path); got != tt.want {
			t.Errorf("IsCodePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsSpecPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"docs/sdd/specs/core.md", true},
		{"docs/sdd/specs/sub/detail.md", true},
		{"docs/sdd/specs/core.txt", false},
		{"docs/sdd/changes/001_demo/90_decision.md", false},
	}
	for _, tt := range tests {
		if got := IsSpecPath(tt.path); got != tt.want {
			t.Errorf("IsSpecPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestHasCompleteArtifacts_IgnoresUnrelatedPaths(t *testing.T) {
	changed := []string{
		"docs/sdd/changes/90_decision.md", // artifact outside any change directory
		"docs/sdd/changes/001_demo/notes.md",
	}
	if HasCompleteArtifacts(changed) {
		t.Error("expected incomplete artifacts")
	}
}
