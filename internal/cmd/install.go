package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/codex-sdd/internal/paths"
	"github.com/YuminosukeSato/codex-sdd/internal/scaffold"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the plans prompt under the codex home",
	RunE:  runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	global, err := paths.LoadGlobal()
	if err != nil {
		return err
	}
	promptPath, err := scaffold.WritePrompt(global.CodexHome)
	if err != nil {
		return err
	}
	color.Green("Installed prompts/plans.md at %s", promptPath)
	fmt.Println("Open a new Codex session to pick it up.")
	return nil
}
