package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Run the task-planning agent over the digest and review",
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().String("id", "", "change id (defaults to the active change)")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("tasks")
	if err != nil {
		return err
	}
	defer ws.close()

	id, _ := cmd.Flags().GetString("id")
	changeDir, err := runSingleAgent(ws, singleAgentStage{
		purpose:      "tasks",
		schema:       "tasks.json",
		artifact:     "40_tasks.md",
		renderPrompt: scaffold.RenderTasksPrompt,
	}, id)
	if err != nil {
		return err
	}
	color.Green("tasks complete: %s", changeDir)
	return nil
}
