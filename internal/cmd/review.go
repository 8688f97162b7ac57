package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the review agent over the repo digest",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().String("id", "", "change id (defaults to the active change)")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("review")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	changeDir, err := runSingleAgent(ws, singleAgentStage{
		purpose:      "review",
		schema:       "review.json",
		artifact:     "20_review.md",
		renderPrompt: scaffold.RenderReviewPrompt,
	}, id)
	if err != nil {
		return err
	}
	color.Green("review complete: %s", changeDir)
	return nil
}
