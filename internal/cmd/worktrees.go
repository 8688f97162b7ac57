package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

var worktreesCmd = &cobra.Command{
	Use:   "worktrees",
	Short: "Create per-agent worktrees for an approved change",
	RunE:  runWorktrees,
}

func init() {
	worktreesCmd.Flags().String("id", "", "change id (defaults to the active change)")
	worktreesCmd.Flags().Int("agents", 2, "number of agent worktrees")
	rootCmd.AddCommand(worktreesCmd)
}

func runWorktrees(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("worktrees")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	agents, _ := cmd.Flags().GetInt("agents")

	var changeID string
	err = ws.store.Update(func(st *state.State) error {
		changeID, err = resolveChangeID(st, id)
		if err != nil {
			return err
		}
		if err := st.RequireApproved(changeID); err != nil {
			return err
		}
		baseCommit, err := ws.git.CurrentCommit()
		if err != nil {
			return err
		}
		st.ChangeStateMut(changeID).BaseCommit = baseCommit
		return nil
	})
	if err != nil {
		return err
	}
	log := ws.log.WithChange(changeID)
	log.Info("worktrees start", "agents", agents)

	worktreeRoot := ws.paths.WorktreeRoot(changeID)
	if err := os.MkdirAll(worktreeRoot, 0755); err != nil {
		return err
	}
	for i := 1; i <= agents; i++ {
		agentName := fmt.Sprintf("agent%d", i)
		branch := fmt.Sprintf("sdd/%s/%s", changeID, agentName)
		path := filepath.Join(worktreeRoot, agentName)
		if err := ws.git.CreateWorktree(branch, path); err != nil {
			return err
		}
		log.Info("worktree ready", "agent", agentName, "branch", branch)
	}

	color.Green("worktrees complete: %s", worktreeRoot)
	return nil
}
