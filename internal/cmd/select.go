package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/quality"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Compare agent variants by tests, coverage, and diff size",
	RunE:  runSelect,
}

func init() {
	selectCmd.Flags().String("id", "", "change id (defaults to the active change)")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("select")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	st, err := ws.store.Load()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeID(st, id)
	if err != nil {
		return err
	}
	changeDir, err := ws.paths.FindChangeDir(changeID)
	if err != nil {
		return err
	}
	log := ws.log.WithChange(changeID)
	log.Info("select start")

	metricsPath := filepath.Join(ws.paths.RunDir(changeID), "metrics.json")
	if _, err := os.Stat(metricsPath); err != nil {
		return fmt.Errorf("metrics not found; run test-plan first")
	}
	metrics, err := quality.ReadMetrics(metricsPath)
	if err != nil {
		return err
	}

	baseCommit := "HEAD~1"
	if cs := st.ChangeState(changeID); cs != nil && cs.BaseCommit != "" {
		baseCommit = cs.BaseCommit
	}

	worktreeRoot := ws.paths.WorktreeRoot(changeID)
	variants := make([]quality.SelectionVariant, 0, len(metrics))
	for _, metric := range metrics {
		worktreePath := filepath.Join(worktreeRoot, metric.Agent)
		added, removed, err := ws.git.InDir(worktreePath).DiffNumstat(baseCommit)
		if err != nil {
			return err
		}
		notes := "coverage: none"
		if metric.CoveragePercent != nil {
			notes = fmt.Sprintf("coverage: %.1f%%", *metric.CoveragePercent)
		}
		variants = append(variants, quality.SelectionVariant{
			Agent:           metric.Agent,
			TestsPassed:     metric.TestsPassed,
			CoveragePercent: metric.CoveragePercent,
			LinesAdded:      added,
			LinesRemoved:    removed,
			Notes:           notes,
		})
	}

	tasksCompletion := quality.TaskCompletionRatio(filepath.Join(changeDir, "40_tasks.md"))
	riskFlag := quality.DetectRisk(filepath.Join(changeDir, "20_review.md"))

	var summary strings.Builder
	summary.WriteString("# Selection Summary\n\n")
	fmt.Fprintf(&summary, "- tasks_completion: %.1f%%\n", tasksCompletion*100)
	fmt.Fprintf(&summary, "- risk_flag: %t\n\n", riskFlag)
	summary.WriteString("## Variants\n")
	for _, v := range variants {
		coverage := "none"
		if v.CoveragePercent != nil {
			coverage = fmt.Sprintf("%.1f%%", *v.CoveragePercent)
		}
		fmt.Fprintf(&summary, "- %s: tests_passed=%t, coverage=%s, diff=+%d -%d\n",
			v.Agent, v.TestsPassed, coverage, v.LinesAdded, v.LinesRemoved)
	}

	if err := os.WriteFile(filepath.Join(changeDir, "80_selection.md"), []byte(summary.String()), 0644); err != nil {
		return err
	}
	if err := quality.WriteJSON(filepath.Join(ws.paths.RunDir(changeID), "selection.json"), variants); err != nil {
		return err
	}

	color.Green("select complete: %s", changeDir)
	return nil
}
