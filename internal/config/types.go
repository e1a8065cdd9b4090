package config

// Config is the root configuration for Parley.
type Config struct {
	Store      StoreConfig      `yaml:"store,omitempty"`
	Session    SessionConfig    `yaml:"session,omitempty"`
	Guardrails GuardrailsConfig `yaml:"guardrails,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// StoreConfig selects and locates the session backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" | "memory"
	Path    string `yaml:"path,omitempty"`    // sqlite database file; ":memory:" for tests
}

// SessionConfig defines session lifetime and history rendering.
type SessionConfig struct {
	TimeoutSeconds  int `yaml:"timeoutSeconds,omitempty"`  // sliding TTL; reset on every write
	ContextMessages int `yaml:"contextMessages,omitempty"` // messages rendered into prompt context
	PreviewLength   int `yaml:"previewLength,omitempty"`   // per-message preview length in the transcript
}

// GuardrailsConfig controls the rule engine.
// The three toggles default to true; set false explicitly to disable.
type GuardrailsConfig struct {
	MaxInputLength  int   `yaml:"maxInputLength,omitempty"`
	MaxOutputLength int   `yaml:"maxOutputLength,omitempty"`
	ContentFilter   *bool `yaml:"contentFilter,omitempty"`
	PIIDetection    *bool `yaml:"piiDetection,omitempty"`
	ToxicityFilter  *bool `yaml:"toxicityFilter,omitempty"`
}

// ContentFilterEnabled reports whether the blocked-pattern check runs.
func (g GuardrailsConfig) ContentFilterEnabled() bool {
	return g.ContentFilter == nil || *g.ContentFilter
}

// PIIDetectionEnabled reports whether PII detection and redaction run.
func (g GuardrailsConfig) PIIDetectionEnabled() bool {
	return g.PIIDetection == nil || *g.PIIDetection
}

// ToxicityFilterEnabled reports whether the toxicity keyword check runs.
func (g GuardrailsConfig) ToxicityFilterEnabled() bool {
	return g.ToxicityFilter == nil || *g.ToxicityFilter
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
