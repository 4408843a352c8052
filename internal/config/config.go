// Package config handles configuration loading and management for loom.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// HardMergeTokenLimit is the last-resort cap on merge output when neither an
// explicit limit nor a preset is configured.
const HardMergeTokenLimit = 4096

// Config holds all configuration for loom.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Merge     MergeConfig     `mapstructure:"merge"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseAWSBedrock switches the client to AWS Bedrock instead of the direct API.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values for loom runs.
type DefaultsConfig struct {
	// Preset names the active preset (conservative, balanced, thorough).
	Preset string `mapstructure:"preset"`
	// Engine is the default backend model selector for subtasks.
	Engine string `mapstructure:"engine"`
}

// TUIConfig holds terminal display settings.
type TUIConfig struct {
	// RefreshRate is the render loop tick interval.
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
	// BufferLines is the rolling display buffer capacity per pane.
	BufferLines int `mapstructure:"buffer_lines"`
}

// MergeConfig holds merge stage settings.
type MergeConfig struct {
	// MaxTokens is the explicit output limit for the merge call.
	// Zero means unset; the active preset's merge value applies instead.
	MaxTokens int `mapstructure:"max_tokens"`
}

// Preset holds tuning values for a named preset.
type Preset struct {
	// Name is the preset name.
	Name string
	// MergeTokens is the merge-stage output limit this preset implies.
	MergeTokens int
}

// presets are the built-in presets, keyed by name.
var presets = map[string]Preset{
	"conservative": {Name: "conservative", MergeTokens: 2048},
	"balanced":     {Name: "balanced", MergeTokens: 8192},
	"thorough":     {Name: "thorough", MergeTokens: 16384},
}

// PresetByName returns the preset with the given name.
func PresetByName(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// MergeTokenLimit resolves the merge output limit through the layered
// precedence: explicit merge.max_tokens, then the active preset's merge
// value, then the hard fallback constant.
func (c *Config) MergeTokenLimit() int {
	if c.Merge.MaxTokens > 0 {
		return c.Merge.MaxTokens
	}
	if p, ok := presets[c.Defaults.Preset]; ok {
		return p.MergeTokens
	}
	return HardMergeTokenLimit
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.loom.yaml in current directory or parent)
// 3. User config (~/.config/loom/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("defaults.preset", "balanced")
	v.SetDefault("defaults.engine", "sonnet")

	v.SetDefault("tui.refresh_rate", "50ms")
	v.SetDefault("tui.buffer_lines", 8)

	// merge.max_tokens deliberately defaults to 0 (unset) so the preset
	// value applies.
	v.SetDefault("merge.max_tokens", 0)
}

// getUserConfigDir returns the XDG config directory for loom.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "loom")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "loom")
	}
	return filepath.Join(home, ".config", "loom")
}

// findProjectConfig searches for .loom.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".loom.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Preset: "balanced",
			Engine: "sonnet",
		},
		TUI: TUIConfig{
			RefreshRate: 50 * time.Millisecond,
			BufferLines: 8,
		},
	}
}
