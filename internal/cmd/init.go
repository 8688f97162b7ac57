package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the docs/sdd scaffold in the current repository",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace("init")
	if err != nil {
		return err
	}
	defer ws.close()

	if err := scaffold.EnsureRepoScaffold(ws.paths.RepoRoot); err != nil {
		return err
	}
	created, err := scaffold.EnsureAgentsMD(ws.paths.RepoRoot)
	if err != nil {
		return err
	}
	if created {
		color.Green("Created AGENTS.md")
	} else {
		fmt.Println("AGENTS.md already exists")
	}
	fmt.Println("Consider adding .codex/sdd/ to .gitignore (but keep .codex/skills).")
	return nil
}
