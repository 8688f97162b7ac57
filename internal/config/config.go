// Package config defines the codex-sdd configuration, loaded through viper
// from a config file, environment variables (prefix CODEX_SDD), and
// programmatic defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete codex-sdd configuration
type Config struct {
	Plans    PlansConfig    `mapstructure:"plans"`
	Index    IndexConfig    `mapstructure:"index"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Coverage CoverageConfig `mapstructure:"coverage"`
	Check    CheckConfig    `mapstructure:"check"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PlansConfig controls the planning stage
type PlansConfig struct {
	// Agents is the default number of reader shards dispatched by "plans"
	Agents int `mapstructure:"agents"`
	// IncludeUntracked includes untracked-but-not-ignored files in the index
	IncludeUntracked bool `mapstructure:"include_untracked"`
}

// IndexConfig controls file indexing behavior
type IndexConfig struct {
	// MaxFileBytes is the size threshold above which files are excluded
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
	// Exclude holds additional glob patterns excluded from the index,
	// on top of the built-in directory exclusions
	Exclude []string `mapstructure:"exclude"`
}

// AgentConfig controls how the external agent runner is invoked
type AgentConfig struct {
	// Binary is the agent runner executable name
	Binary string `mapstructure:"binary"`
	// PromptFlag is the flag used to pass the prompt file path
	PromptFlag string `mapstructure:"prompt_flag"`
	// ExtraArgs holds additional whitespace-separated arguments
	ExtraArgs string `mapstructure:"extra_args"`
}

// CoverageConfig controls the coverage collaborator
type CoverageConfig struct {
	// Tool selects the coverage runner: "llvm-cov", "tarpaulin", or "none"
	Tool string `mapstructure:"tool"`
}

// CheckConfig controls the workflow check classification
type CheckConfig struct {
	// BaseRef overrides the default base ref for diff classification
	BaseRef string `mapstructure:"base_ref"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level"`
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Plans: PlansConfig{
			Agents:           4,
			IncludeUntracked: false,
		},
		Index: IndexConfig{
			MaxFileBytes: 1_000_000,
			Exclude:      nil,
		},
		Agent: AgentConfig{
			Binary:     "codex",
			PromptFlag: "--prompt-file",
			ExtraArgs:  "",
		},
		Coverage: CoverageConfig{
			Tool: "llvm-cov",
		},
		Check: CheckConfig{
			BaseRef: "",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// SetDefaults registers default values with viper so they're available
// even without a config file
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("plans.agents", defaults.Plans.Agents)
	viper.SetDefault("plans.include_untracked", defaults.Plans.IncludeUntracked)

	viper.SetDefault("index.max_file_bytes", defaults.Index.MaxFileBytes)
	viper.SetDefault("index.exclude", defaults.Index.Exclude)

	viper.SetDefault("agent.binary", defaults.Agent.Binary)
	viper.SetDefault("agent.prompt_flag", defaults.Agent.PromptFlag)
	viper.SetDefault("agent.extra_args", defaults.Agent.ExtraArgs)

	viper.SetDefault("coverage.tool", defaults.Coverage.Tool)

	viper.SetDefault("check.base_ref", defaults.Check.BaseRef)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the current configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codex-sdd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codex-sdd"
	}
	return filepath.Join(home, ".config", "codex-sdd")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidCoverageTools returns the list of valid coverage.tool values
func ValidCoverageTools() []string {
	return []string{"llvm-cov", "tarpaulin", "none"}
}
