package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/utkarsh5026/taskpool/pool"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validatePool()...)
	errs = append(errs, c.validateProbe()...)
	errs = append(errs, c.validateLogging()...)

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, ValidationError{Field: "store.path", Value: c.Store.Path, Message: "must not be empty"})
	}
	return errs
}

func (c *Config) validatePool() []ValidationError {
	var errs []ValidationError

	if c.Pool.Concurrency <= 0 {
		errs = append(errs, ValidationError{
			Field:   "pool.concurrency",
			Value:   c.Pool.Concurrency,
			Message: "must be positive",
		})
	}

	if _, err := pool.ParseFailurePolicy(c.Pool.FailurePolicy); err != nil {
		errs = append(errs, ValidationError{
			Field:   "pool.failure_policy",
			Value:   c.Pool.FailurePolicy,
			Message: "must be one of: first-error, cancel, collect",
		})
	}

	if c.Pool.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "pool.rate_limit",
			Value:   c.Pool.RateLimit,
			Message: "must not be negative",
		})
	}

	if c.Pool.RateLimit > 0 && c.Pool.Burst <= 0 {
		errs = append(errs, ValidationError{
			Field:   "pool.burst",
			Value:   c.Pool.Burst,
			Message: "must be positive when rate_limit is set",
		})
	}

	return errs
}

func (c *Config) validateProbe() []ValidationError {
	var errs []ValidationError

	if c.Probe.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "probe.timeout", Value: c.Probe.Timeout, Message: "must not be negative"})
	}
	if c.Probe.RetryAttempts < 1 {
		errs = append(errs, ValidationError{Field: "probe.retry_attempts", Value: c.Probe.RetryAttempts, Message: "must be at least 1"})
	}
	if c.Probe.RetryDelay < 0 {
		errs = append(errs, ValidationError{Field: "probe.retry_delay", Value: c.Probe.RetryDelay, Message: "must not be negative"})
	}
	if c.Probe.EmulatorTimeout < 0 {
		errs = append(errs, ValidationError{Field: "probe.emulator_timeout", Value: c.Probe.EmulatorTimeout, Message: "must not be negative"})
	}

	return errs
}

func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errs
}

// FailurePolicy returns the parsed pool failure policy.
// Call it only on a validated Config.
func (c *Config) FailurePolicy() pool.FailurePolicy {
	fp, _ := pool.ParseFailurePolicy(c.Pool.FailurePolicy)
	return fp
}
