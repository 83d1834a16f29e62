package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/attunelabs/attune/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.tick_interval_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return logging.ValidLevels()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateBreakthrough()...)
	errors = append(errors, c.validateStrategy()...)
	errors = append(errors, c.validateMetrics()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if c.Engine.TickIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.tick_interval_ms",
			Value:   c.Engine.TickIntervalMs,
			Message: "must be positive",
		})
	}

	if c.Engine.TickTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.tick_timeout_ms",
			Value:   c.Engine.TickTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Engine.BackoffCapMs < c.Engine.TickIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "engine.backoff_cap_ms",
			Value:   c.Engine.BackoffCapMs,
			Message: "must be at least engine.tick_interval_ms",
		})
	}

	if c.Engine.IdleTimeoutMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.idle_timeout_minutes",
			Value:   c.Engine.IdleTimeoutMinutes,
			Message: "must be non-negative (0 disables idle sweeping)",
		})
	}

	if c.Engine.MailboxSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.mailbox_size",
			Value:   c.Engine.MailboxSize,
			Message: "must be positive",
		})
	}

	// Upper bound to catch an accidental bytes-vs-entries confusion
	const maxMailboxSize = 65536
	if c.Engine.MailboxSize > maxMailboxSize {
		errors = append(errors, ValidationError{
			Field:   "engine.mailbox_size",
			Value:   c.Engine.MailboxSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxMailboxSize),
		})
	}

	return errors
}

// validateBreakthrough validates the BreakthroughConfig
func (c *Config) validateBreakthrough() []ValidationError {
	var errors []ValidationError

	if c.Breakthrough.TriggerLevel <= 0 || c.Breakthrough.TriggerLevel > 1 {
		errors = append(errors, ValidationError{
			Field:   "breakthrough.trigger_level",
			Value:   c.Breakthrough.TriggerLevel,
			Message: "must be in (0, 1]",
		})
	}

	if c.Breakthrough.CooldownSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "breakthrough.cooldown_seconds",
			Value:   c.Breakthrough.CooldownSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateStrategy validates the StrategyConfig
func (c *Config) validateStrategy() []ValidationError {
	var errors []ValidationError

	if c.Strategy.File != "" {
		if _, err := os.Stat(c.Strategy.File); err != nil {
			errors = append(errors, ValidationError{
				Field:   "strategy.file",
				Value:   c.Strategy.File,
				Message: "file does not exist or is not readable",
			})
		}
	}

	return errors
}

// validateMetrics validates the MetricsConfig
func (c *Config) validateMetrics() []ValidationError {
	var errors []ValidationError

	if c.Metrics.LogIntervalSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "metrics.log_interval_seconds",
			Value:   c.Metrics.LogIntervalSeconds,
			Message: "must be non-negative (0 disables the summary line)",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
