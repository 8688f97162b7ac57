package scaffold

import (
	"fmt"
	"os"
	"strings"

	"github.com/YuminosukeSato/codex-sdd/internal/agent"
	"github.com/YuminosukeSato/codex-sdd/internal/index"
)

// RenderReaderPrompt builds the prompt for one reader shard: the shard's
// position, its file list, and the summary the agent should produce.
func RenderReaderPrompt(changeID string, idx, total int, shard []index.FileEntry) string {
	var b strings.Builder
	b.WriteString("# Reader\n\n")
	fmt.Fprintf(&b, "change_id: %s\n", changeID)
	fmt.Fprintf(&b, "shard: %d/%d\n\n", idx+1, total)
	b.WriteString("Files in scope:\n")
	for _, entry := range shard {
		fmt.Fprintf(&b, "- %s\n", entry.Path)
	}
	b.WriteString("\nSummarize concisely:\n- role\n- public API\n- risks\n- test angles\n")
	return b.String()
}

// RenderReviewPrompt builds the prompt for the review stage.
func RenderReviewPrompt(changeDir, changeID string) string {
	return fmt.Sprintf(
		"# Review\n\nchange_id: %s\n\nRead the following document and organize review findings:\n- %s/10_repo_digest.md\n\nProduce output conforming to the JSON schema.\n",
		changeID, changeDir)
}

// RenderTasksPrompt builds the prompt for the task-planning stage.
func RenderTasksPrompt(changeDir, changeID string) string {
	return fmt.Sprintf(
		"# Tasks\n\nchange_id: %s\n\nRead the following documents and organize implementation tasks:\n- %s/10_repo_digest.md\n- %s/20_review.md\n\nProduce output conforming to the JSON schema.\n",
		changeID, changeDir, changeDir)
}

// RenderTestPlanPrompt builds the prompt for one agent's test-plan stage.
func RenderTestPlanPrompt(changeID, agentName string) string {
	return fmt.Sprintf(
		"# Test Plan\n\nchange_id: %s\nagent: %s\n\nOrganize the test plan for the target branch.\n",
		changeID, agentName)
}

// ComposeRepoDigest stitches every present reader shard output into the
// repo digest document. Absent shard outputs are skipped; memoized shards
// keep their previous output on disk.
func ComposeRepoDigest(runsDir, changeID string, shards int) (string, error) {
	var b strings.Builder
	b.WriteString("# Repo Digest\n\n")
	for i := 0; i < shards; i++ {
		outputPath, _ := agent.OutputPaths(runsDir, changeID, fmt.Sprintf("reader_%d", i))
		contents, err := os.ReadFile(outputPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("read %s: %w", outputPath, err)
		}
		fmt.Fprintf(&b, "## Shard %d\n\n%s\n", i, contents)
	}
	return b.String(), nil
}
