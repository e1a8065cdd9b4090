package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validBackends := []string{"sqlite", "memory"}
	if cfg.Store.Backend != "" && !slices.Contains(validBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Store.Backend),
		})
	}

	if cfg.Session.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.TimeoutSeconds),
		})
	}
	if cfg.Session.ContextMessages < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.contextMessages",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.ContextMessages),
		})
	}
	if cfg.Session.PreviewLength < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.previewLength",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.PreviewLength),
		})
	}

	if cfg.Guardrails.MaxInputLength < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "guardrails.maxInputLength",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Guardrails.MaxInputLength),
		})
	}
	if cfg.Guardrails.MaxOutputLength < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "guardrails.maxOutputLength",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Guardrails.MaxOutputLength),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
