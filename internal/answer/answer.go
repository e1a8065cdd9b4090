// Package answer defines the answer-generation capability Parley wraps.
//
// Parley never generates answers itself: retrieval, prompting, and LLM
// invocation live behind the Answerer interface. The guardrails pipeline
// and the conversation wrapper are decorators around it.
package answer

import (
	"context"

	"github.com/soyeahso/parley/internal/domain"
)

// Result is the outcome of one answer call, possibly annotated by the
// guardrails pipeline and the conversation wrapper on its way back out.
type Result struct {
	Query    string          `json:"query"`
	Response string          `json:"response"`
	Sources  []domain.Source `json:"sources,omitempty"`

	// Guardrails annotations.
	Blocked    bool               `json:"blocked,omitempty"`
	Violations []domain.Violation `json:"guardrailsViolations,omitempty"`
	Warnings   []domain.Violation `json:"guardrailsWarnings,omitempty"`

	// Conversation annotations.
	UserID             string `json:"userId,omitempty"`
	ConversationLength int    `json:"conversationLength,omitempty"`
	SessionPersisted   bool   `json:"sessionPersisted,omitempty"`
	Backend            string `json:"backend,omitempty"`
}

// Answerer is the capability all answer engines must implement.
type Answerer interface {
	// Answer responds to a query. Blocking; the caller owns any timeout
	// via ctx.
	Answer(ctx context.Context, query string) (*Result, error)
}

// Func adapts a plain function to the Answerer interface.
type Func func(ctx context.Context, query string) (*Result, error)

// Answer calls f.
func (f Func) Answer(ctx context.Context, query string) (*Result, error) {
	return f(ctx, query)
}
