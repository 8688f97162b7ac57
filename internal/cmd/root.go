// Package cmd wires the codex-sdd subcommands. Each command loads the
// repository layout, takes the state store through its narrow
// load/mutate/save contract, and delegates the real work to the internal
// packages.
package cmd

import (
	"strings"

	"github.com/YuminosukeSato/codex-sdd/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "codex-sdd",
	Short: "Spec-driven multi-agent change workflow",
	Long: `codex-sdd coordinates a spec-driven change workflow over a git
repository: it indexes the repo by content hash, dispatches concurrent
reader agents per shard, and gates worktrees, test planning, and
finalization behind an explicit approval.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/codex-sdd/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CODEX_SDD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
