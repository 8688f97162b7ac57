// Package scaffold writes the on-disk documentation layout: the repo-level
// docs/sdd tree, per-change working directories, the install-time prompt,
// and the JSON schemas that constrain structured agent output.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

// PromptPlansFilename is the prompt installed under CODEX_HOME/prompts.
const PromptPlansFilename = "plans.md"

const docsReadme = `# Spec-Driven Development (SDD)

This folder holds codex-sdd artifacts.
- ` + "`specs/`" + `: current specifications
- ` + "`changes/`" + `: change proposals and working sessions
`

const agentsMD = `# Project Agent Instructions (codex-sdd)

## Workflow
1. ` + "`codex-sdd plans --name \"<change-name>\" [--agents N] [--include-untracked]`" + `
   produces ` + "`docs/sdd/changes/<id>_<name>/10_repo_digest.md`" + `.
2. ` + "`codex-sdd review`" + ` and ` + "`codex-sdd tasks`" + ` produce
   ` + "`20_review.md`" + ` and ` + "`40_tasks.md`" + `.
3. ` + "`codex-sdd approve`" + ` records the decision in ` + "`90_decision.md`" + `
   and unlocks the later stages.
4. ` + "`codex-sdd worktrees --agents N`" + ` creates agent worktrees under
   ` + "`.codex/sdd/worktrees/<change_id>/agentN`" + `.
5. ` + "`codex-sdd test-plan [--coverage llvm-cov|tarpaulin|none]`" + ` produces
   ` + "`50_test_plan.md`" + ` plus metrics under ` + "`.codex/sdd/runs/<change_id>/`" + `.
6. ` + "`codex-sdd select`" + ` compares variants into ` + "`80_selection.md`" + `.
7. ` + "`codex-sdd finalize --agent agentN [--strategy merge|cherry-pick]`" + `
   merges the chosen branch and archives the change directory.

## CI check rules
- ` + "`codex-sdd check`" + ` passes when only ` + "`docs/**`" + ` changed.
- Code changes additionally require an updated ` + "`docs/sdd/specs/*.md`" + `
  and ` + "`90_decision.md`" + `, ` + "`40_tasks.md`" + `, ` + "`50_test_plan.md`" + `
  under a single change directory.

## Environment variables
- ` + "`CODEX_HOME`" + `: base directory for Codex assets (default ` + "`~/.codex`" + `).
- ` + "`CODEX_SDD_PROMPT_FLAG`" + `: override the prompt flag (default ` + "`--prompt-file`" + `).
- ` + "`CODEX_SDD_EXEC_ARGS`" + `: extra args passed to the agent runner.
`

const promptPlans = `---
name: plans
argument-hint: change-id
---

# Codex SDD Plans

Survey the repository and update
` + "`docs/sdd/changes/<change_id>_.../10_repo_digest.md`" + `.

1. Read ` + "`context/file_index.json`" + ` to learn the files in scope.
2. Read ` + "`context/repo_tree.txt`" + ` to understand the directory layout.
3. Summarize the important areas, public APIs, risks, and test angles.
`

// changePlaceholders are the files created inside a fresh change directory.
var changePlaceholders = map[string]string{
	"10_repo_digest.md": "# Repo Digest\n\n(generated)\n",
	"20_review.md":      "# Review\n\n(generated)\n",
	"40_tasks.md":       "# Tasks\n\n(generated)\n",
	"50_test_plan.md":   "# Test Plan\n\n(generated)\n",
	"90_decision.md":    "# Decision\n\n(written on approval)\n",
}

// contextPlaceholders are the files created inside a change's context dir.
var contextPlaceholders = map[string]string{
	"README.md":       "# Context\n\nIndexes and supporting material live here.\n",
	"repo_tree.txt":   "(generated)\n",
	"file_index.json": "{}\n",
}

// EnsureRepoScaffold creates the docs/sdd tree in the repository.
func EnsureRepoScaffold(repoRoot string) error {
	docsSDD := filepath.Join(repoRoot, "docs", "sdd")
	for _, dir := range []string{"specs", "changes"} {
		if err := os.MkdirAll(filepath.Join(docsSDD, dir), 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return writeFileIfMissing(filepath.Join(docsSDD, "README.md"), docsReadme)
}

// EnsureAgentsMD writes AGENTS.md at the repo root unless it already
// exists. Returns true when the file was created.
func EnsureAgentsMD(repoRoot string) (bool, error) {
	path := filepath.Join(repoRoot, "AGENTS.md")
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := writeFile(path, agentsMD); err != nil {
		return false, err
	}
	return true, nil
}

// WritePrompt installs the plans prompt under codexHome/prompts and
// returns its path.
func WritePrompt(codexHome string) (string, error) {
	promptsDir := filepath.Join(codexHome, "prompts")
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", promptsDir, err)
	}
	promptPath := filepath.Join(promptsDir, PromptPlansFilename)
	if err := writeFile(promptPath, promptPlans); err != nil {
		return "", err
	}
	return promptPath, nil
}

// EnsureChangeScaffold creates a change directory with its placeholder
// artifacts and context files. Existing files are left untouched.
func EnsureChangeScaffold(changeDir string) error {
	if err := os.MkdirAll(changeDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", changeDir, err)
	}
	for name, contents := range changePlaceholders {
		if err := writeFileIfMissing(filepath.Join(changeDir, name), contents); err != nil {
			return err
		}
	}
	contextDir := filepath.Join(changeDir, "context")
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", contextDir, err)
	}
	for name, contents := range contextPlaceholders {
		if err := writeFileIfMissing(filepath.Join(contextDir, name), contents); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeFileIfMissing(path, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeFile(path, contents)
}
