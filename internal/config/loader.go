package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the config file, applies environment overrides, and returns
// a merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Session.TimeoutSeconds == 0 {
		cfg.Session.TimeoutSeconds = 3600
	}
	if cfg.Session.ContextMessages == 0 {
		cfg.Session.ContextMessages = 5
	}
	if cfg.Session.PreviewLength == 0 {
		cfg.Session.PreviewLength = 100
	}
	if cfg.Guardrails.MaxInputLength == 0 {
		cfg.Guardrails.MaxInputLength = 2000
	}
	if cfg.Guardrails.MaxOutputLength == 0 {
		cfg.Guardrails.MaxOutputLength = 2000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads PARLEY_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARLEY_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PARLEY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PARLEY_SESSION_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Session.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("PARLEY_CONTEXT_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.ContextMessages = n
		}
	}
	if v := os.Getenv("PARLEY_PREVIEW_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.PreviewLength = n
		}
	}
	if v := os.Getenv("PARLEY_MAX_INPUT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Guardrails.MaxInputLength = n
		}
	}
	if v := os.Getenv("PARLEY_MAX_OUTPUT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Guardrails.MaxOutputLength = n
		}
	}
	if v := os.Getenv("PARLEY_CONTENT_FILTER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Guardrails.ContentFilter = &b
		}
	}
	if v := os.Getenv("PARLEY_PII_DETECTION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Guardrails.PIIDetection = &b
		}
	}
	if v := os.Getenv("PARLEY_TOXICITY_FILTER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Guardrails.ToxicityFilter = &b
		}
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
