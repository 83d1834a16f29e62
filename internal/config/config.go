package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the complete Attune configuration
type Config struct {
	Engine       EngineConfig       `mapstructure:"engine" yaml:"engine"`
	Breakthrough BreakthroughConfig `mapstructure:"breakthrough" yaml:"breakthrough"`
	Strategy     StrategyConfig     `mapstructure:"strategy" yaml:"strategy"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
	Journal      JournalConfig      `mapstructure:"journal" yaml:"journal"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// EngineConfig controls session worker behavior
type EngineConfig struct {
	// TickIntervalMs is how often each session runs its periodic review (in milliseconds)
	TickIntervalMs int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`
	// TickTimeoutMs bounds how long a single review may run (in milliseconds)
	TickTimeoutMs int `mapstructure:"tick_timeout_ms" yaml:"tick_timeout_ms"`
	// BackoffCapMs caps the review interval growth after consecutive failures (in milliseconds)
	BackoffCapMs int `mapstructure:"backoff_cap_ms" yaml:"backoff_cap_ms"`
	// IdleTimeoutMinutes is the number of minutes without a signal before a session
	// is ended by the sweeper (0 = disabled)
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes" yaml:"idle_timeout_minutes"`
	// MailboxSize is the per-session signal mailbox capacity
	MailboxSize int `mapstructure:"mailbox_size" yaml:"mailbox_size"`
}

// BreakthroughConfig controls breakthrough detection
type BreakthroughConfig struct {
	// TriggerLevel is the signal level a sample must exceed to fire (default: 0.85)
	TriggerLevel float64 `mapstructure:"trigger_level" yaml:"trigger_level"`
	// CooldownSeconds is the minimum time between breakthroughs per session (default: 60)
	CooldownSeconds int `mapstructure:"cooldown_seconds" yaml:"cooldown_seconds"`
}

// StrategyConfig controls the adaptation parameter tables
type StrategyConfig struct {
	// File is the path to a YAML override file. Empty uses the built-in tables.
	File string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the metrics aggregator
type MetricsConfig struct {
	// Enabled controls whether the aggregator is attached to the bus (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// LogIntervalSeconds is how often a metrics summary line is logged (0 = never)
	LogIntervalSeconds int `mapstructure:"log_interval_seconds" yaml:"log_interval_seconds"`
}

// JournalConfig controls the append-only audit trail
type JournalConfig struct {
	// Enabled controls whether engine output is journaled to disk (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Dir is the directory journal files are written to. Empty uses
	// <config dir>/journal.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the log file path. Empty logs to stderr.
	File string `mapstructure:"file" yaml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TickIntervalMs:     10000,
			TickTimeoutMs:      2000,
			BackoffCapMs:       80000, // four doublings of the default tick
			IdleTimeoutMinutes: 10,
			MailboxSize:        64,
		},
		Breakthrough: BreakthroughConfig{
			TriggerLevel:    0.85,
			CooldownSeconds: 60,
		},
		Strategy: StrategyConfig{
			File: "", // Empty means use the built-in tables
		},
		Metrics: MetricsConfig{
			Enabled:            true,
			LogIntervalSeconds: 60,
		},
		Journal: JournalConfig{
			Enabled: false,
			Dir:     "", // Empty means use <config dir>/journal
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// TickInterval returns the review tick interval as a time.Duration
func (c *EngineConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// TickTimeout returns the review deadline as a time.Duration
func (c *EngineConfig) TickTimeout() time.Duration {
	return time.Duration(c.TickTimeoutMs) * time.Millisecond
}

// BackoffCap returns the review backoff cap as a time.Duration
func (c *EngineConfig) BackoffCap() time.Duration {
	return time.Duration(c.BackoffCapMs) * time.Millisecond
}

// IdleTimeout returns the idle timeout as a time.Duration (0 means disabled)
func (c *EngineConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

// Cooldown returns the breakthrough cool-down as a time.Duration
func (c *BreakthroughConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// ResolveDir returns the journal directory, falling back to the default
// under the config directory when unset.
func (c *JournalConfig) ResolveDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(ConfigDir(), "journal")
}

// LogInterval returns the metrics logging interval as a time.Duration (0 means never)
func (c *MetricsConfig) LogInterval() time.Duration {
	return time.Duration(c.LogIntervalSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Engine defaults
	viper.SetDefault("engine.tick_interval_ms", defaults.Engine.TickIntervalMs)
	viper.SetDefault("engine.tick_timeout_ms", defaults.Engine.TickTimeoutMs)
	viper.SetDefault("engine.backoff_cap_ms", defaults.Engine.BackoffCapMs)
	viper.SetDefault("engine.idle_timeout_minutes", defaults.Engine.IdleTimeoutMinutes)
	viper.SetDefault("engine.mailbox_size", defaults.Engine.MailboxSize)

	// Breakthrough defaults
	viper.SetDefault("breakthrough.trigger_level", defaults.Breakthrough.TriggerLevel)
	viper.SetDefault("breakthrough.cooldown_seconds", defaults.Breakthrough.CooldownSeconds)

	// Strategy defaults
	viper.SetDefault("strategy.file", defaults.Strategy.File)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.log_interval_seconds", defaults.Metrics.LogIntervalSeconds)

	// Journal defaults
	viper.SetDefault("journal.enabled", defaults.Journal.Enabled)
	viper.SetDefault("journal.dir", defaults.Journal.Dir)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Watch re-loads the configuration whenever the config file changes on disk
// and hands the result to onChange. Invalid edits are ignored so a typo
// never takes down a running service.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := Load()
		if err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "attune")
	}
	// Fall back to ~/.config/attune
	home, err := os.UserHomeDir()
	if err != nil {
		return ".attune"
	}
	return filepath.Join(home, ".config", "attune")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
