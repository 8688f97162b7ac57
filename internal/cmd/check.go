package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/gate"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify changed paths against the workflow rules",
	Long: `Check diffs the working tree against a base ref and classifies the
changed paths: documentation-only changes pass, while code changes
require a spec update and the decision/tasks/test-plan artifacts for a
single change directory.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("base", "", "base ref (defaults to origin/main, then HEAD~1)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("check")
	if err != nil {
		return err
	}
	defer ws.close()

	base, _ := cmd.Flags().GetString("base")
	if base == "" {
		base = ws.cfg.Check.BaseRef
	}
	base = resolveBaseRef(ws, base)

	changed, err := ws.git.DiffNames(base)
	if err != nil {
		return err
	}
	ws.log.Info("check start", "base", base, "changed", len(changed))

	if len(changed) == 0 {
		fmt.Println("no changes")
		return nil
	}
	if err := gate.Check(changed); err != nil {
		return err
	}

	color.Green("check complete")
	return nil
}

// resolveBaseRef picks the diff base: the requested ref if given, then
// origin/main when it resolves, then HEAD~1.
func resolveBaseRef(ws *workspace, requested string) string {
	if requested != "" {
		return requested
	}
	if _, err := ws.git.ResolveRef("origin/main"); err == nil {
		return "origin/main"
	}
	return "HEAD~1"
}
