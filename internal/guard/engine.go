// Package guard implements the input/output guardrails: a stateless rule
// engine plus a pipeline decorator that applies it around an answerer.
package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/soyeahso/parley/internal/config"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/logging"
)

// Rule identifiers reported in violations.
const (
	RuleMaxLength      = "max_length"
	RuleEmptyInput     = "empty_input"
	RuleBlockedContent = "blocked_content"
	RulePIIDetected    = "pii_detected"
	RuleToxicContent   = "toxic_content"
)

// blockedPatterns cover credential-probing and jailbreak-style phrasing.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hack|exploit|bypass|jailbreak)\b`),
	regexp.MustCompile(`(?i)\b(password|secret|token)\s*[:=]`),
}

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

// piiPatterns are applied in order; redaction follows the same order.
var piiPatterns = []piiPattern{
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"phone", regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credit_card", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
}

var toxicKeywords = []string{
	"hate", "violence", "harassment", "discrimination",
	"illegal", "harmful", "dangerous",
}

// InputVerdict is the result of validating inbound text.
type InputVerdict struct {
	Valid      bool
	Violations []domain.Violation
	// Sanitized has every detected PII span replaced with a redaction
	// token. Returned regardless of Valid so callers can choose to use it.
	Sanitized string
}

// OutputVerdict is the result of validating generated text.
type OutputVerdict struct {
	Safe       bool
	Violations []domain.Violation
	// Sanitized is the output after truncation and PII redaction.
	Sanitized string
}

// Engine evaluates text against a fixed rule set. It is stateless beyond
// its configuration and safe for concurrent use.
type Engine struct {
	maxInput       int
	maxOutput      int
	contentFilter  bool
	piiDetection   bool
	toxicityFilter bool
	log            *logging.Logger
}

// NewEngine creates a rule engine from configuration.
func NewEngine(cfg config.GuardrailsConfig, log *logging.Logger) *Engine {
	return &Engine{
		maxInput:       cfg.MaxInputLength,
		maxOutput:      cfg.MaxOutputLength,
		contentFilter:  cfg.ContentFilterEnabled(),
		piiDetection:   cfg.PIIDetectionEnabled(),
		toxicityFilter: cfg.ToxicityFilterEnabled(),
		log:            log.Sub("guardrails"),
	}
}

// ValidateInput checks inbound text. An over-length or empty input, blocked
// content, or toxicity is high severity and invalidates the input; PII
// alone is medium severity (the user describing themselves is tolerated,
// but the text is still offered in redacted form).
func (e *Engine) ValidateInput(text string) InputVerdict {
	var violations []domain.Violation

	if utf8.RuneCountInString(text) > e.maxInput {
		violations = append(violations, domain.Violation{
			Rule:     RuleMaxLength,
			Message:  fmt.Sprintf("Input exceeds maximum length of %d characters", e.maxInput),
			Severity: domain.SeverityHigh,
		})
	}

	if strings.TrimSpace(text) == "" {
		violations = append(violations, domain.Violation{
			Rule:     RuleEmptyInput,
			Message:  "Input cannot be empty",
			Severity: domain.SeverityHigh,
		})
	}

	if e.contentFilter {
		for _, pattern := range blockedPatterns {
			if pattern.MatchString(text) {
				violations = append(violations, domain.Violation{
					Rule:     RuleBlockedContent,
					Message:  "Input contains blocked content",
					Severity: domain.SeverityHigh,
				})
			}
		}
	}

	if e.piiDetection {
		if found := detectPII(text); len(found) > 0 {
			violations = append(violations, domain.Violation{
				Rule:     RulePIIDetected,
				Message:  "PII detected: " + strings.Join(found, ", "),
				Severity: domain.SeverityMedium,
			})
		}
	}

	if e.toxicityFilter && containsToxic(text) {
		violations = append(violations, domain.Violation{
			Rule:     RuleToxicContent,
			Message:  "Potentially toxic content detected",
			Severity: domain.SeverityHigh,
		})
	}

	sanitized := text
	if e.piiDetection {
		sanitized = redactPII(text)
	}

	return InputVerdict{
		Valid:      domain.HighestSeverity(violations) == nil,
		Violations: violations,
		Sanitized:  sanitized,
	}
}

// ValidateOutput checks generated text. Over-length output is medium
// severity and is truncated rather than rejected; PII in output is high
// severity (a privacy leak, not self-description) and is redacted.
func (e *Engine) ValidateOutput(text string) OutputVerdict {
	var violations []domain.Violation

	if utf8.RuneCountInString(text) > e.maxOutput {
		violations = append(violations, domain.Violation{
			Rule:     RuleMaxLength,
			Message:  fmt.Sprintf("Output exceeds maximum length of %d characters", e.maxOutput),
			Severity: domain.SeverityMedium,
		})
		text = truncate(text, e.maxOutput) + "..."
	}

	if e.piiDetection {
		if found := detectPII(text); len(found) > 0 {
			violations = append(violations, domain.Violation{
				Rule:     RulePIIDetected,
				Message:  "PII detected in output: " + strings.Join(found, ", "),
				Severity: domain.SeverityHigh,
			})
			text = redactPII(text)
		}
	}

	if e.toxicityFilter && containsToxic(text) {
		violations = append(violations, domain.Violation{
			Rule:     RuleToxicContent,
			Message:  "Potentially toxic content detected in output",
			Severity: domain.SeverityHigh,
		})
	}

	return OutputVerdict{
		Safe:       domain.HighestSeverity(violations) == nil,
		Violations: violations,
		Sanitized:  text,
	}
}

// detectPII returns the names of all PII categories found in text.
func detectPII(text string) []string {
	var found []string
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			found = append(found, p.name)
		}
	}
	return found
}

// redactPII replaces every detected PII span with a type-tagged token.
func redactPII(text string) string {
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, "[REDACTED_"+strings.ToUpper(p.name)+"]")
	}
	return text
}

func containsToxic(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range toxicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
