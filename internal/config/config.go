// Package config loads and validates Parley configuration from a YAML file
// with PARLEY_* environment overrides.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Session: SessionConfig{
			TimeoutSeconds:  3600,
			ContextMessages: 5,
			PreviewLength:   100,
		},
		Guardrails: GuardrailsConfig{
			MaxInputLength:  2000,
			MaxOutputLength: 2000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
