package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/gate"
	"github.com/YuminosukeSato/codex-sdd/internal/git"
	"github.com/YuminosukeSato/codex-sdd/internal/state"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Merge the selected agent's branch and archive the change",
	RunE:  runFinalize,
}

func init() {
	finalizeCmd.Flags().String("id", "", "change id (defaults to the active change)")
	finalizeCmd.Flags().String("agent", "", "agent whose branch to land (required)")
	finalizeCmd.Flags().String("strategy", "merge", "landing strategy: merge or cherry-pick")
	_ = finalizeCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(finalizeCmd)
}

func runFinalize(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("finalize")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	agentName, _ := cmd.Flags().GetString("agent")
	strategy, _ := cmd.Flags().GetString("strategy")

	st, err := ws.store.Load()
	if err != nil {
		return err
	}
	changeID, err := resolveChangeID(st, id)
	if err != nil {
		return err
	}
	// Hard gate: only approved changes can land.
	if err := st.RequireApproved(changeID); err != nil {
		return err
	}
	changeDir, err := ws.paths.FindChangeDir(changeID)
	if err != nil {
		return err
	}
	log := ws.log.WithChange(changeID)
	log.Info("finalize start", "agent", agentName, "strategy", strategy)

	// The landed branch must carry a spec update when a base commit is
	// known to diff against.
	worktreePath := filepath.Join(ws.paths.WorktreeRoot(changeID), agentName)
	if _, statErr := os.Stat(worktreePath); statErr == nil {
		if cs := st.ChangeState(changeID); cs != nil && cs.BaseCommit != "" {
			changed, err := ws.git.InDir(worktreePath).DiffNames(cs.BaseCommit)
			if err != nil {
				return err
			}
			specUpdated := false
			for _, path := range changed {
				if gate.IsSpecPath(path) {
					specUpdated = true
					break
				}
			}
			if !specUpdated {
				return fmt.Errorf("finalize requires an updated %s<spec>%s", gate.SpecsPrefix, gate.SpecExt)
			}
		}
	}

	branch := fmt.Sprintf("sdd/%s/%s", changeID, agentName)
	switch strategy {
	case "cherry-pick":
		err = ws.git.CherryPick(branch)
	default:
		err = ws.git.MergeBranch(branch, true)
	}
	if err != nil {
		return err
	}

	archiveName := fmt.Sprintf("%s-%s",
		time.Now().UTC().Format("2006-01-02"), filepath.Base(changeDir))
	archiveDir := filepath.Join(ws.paths.DocsArchive, archiveName)
	if err := git.MoveDir(changeDir, archiveDir); err != nil {
		return err
	}

	// Archival is the one moment a change record may be removed.
	err = ws.store.Update(func(st *state.State) error {
		st.RemoveChange(changeID)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("change archived", "archive", archiveDir)

	color.Green("finalize complete: %s", archiveDir)
	return nil
}
