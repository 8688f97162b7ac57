package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a change, unlocking worktrees, test-plan, and finalize",
	RunE:  runApprove,
}

func init() {
	approveCmd.Flags().String("id", "", "change id (defaults to the active change)")
	approveCmd.Flags().String("by", "", "approver (defaults to $USER)")
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("approve")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	approvedBy, _ := cmd.Flags().GetString("by")
	if approvedBy == "" {
		approvedBy = os.Getenv("USER")
	}
	if approvedBy == "" {
		approvedBy = "unknown"
	}

	var changeID, changeDir string
	err = ws.store.Update(func(st *state.State) error {
		changeID, err = resolveChangeID(st, id)
		if err != nil {
			return err
		}
		changeDir, err = ws.paths.FindChangeDir(changeID)
		if err != nil {
			return err
		}
		st.ApproveChange(changeID, approvedBy)
		return nil
	})
	if err != nil {
		return err
	}
	ws.log.WithChange(changeID).Info("change approved", "approved_by", approvedBy)

	decision := fmt.Sprintf(
		"# Decision\n\n- approved: true\n- approved_at: %s\n- approved_by: %s\n",
		time.Now().UTC().Format(time.RFC3339), approvedBy)
	if err := os.WriteFile(filepath.Join(changeDir, "90_decision.md"), []byte(decision), 0644); err != nil {
		return err
	}

	color.Green("approve complete: %s", changeDir)
	return nil
}
