package answer

import "context"

// Mock is a test double for Answerer. It counts calls so tests can verify
// the pipeline short-circuits blocked input.
type Mock struct {
	AnswerFunc func(ctx context.Context, query string) (*Result, error)
	Calls      int
}

// Answer invokes AnswerFunc, or echoes a canned response when unset.
func (m *Mock) Answer(ctx context.Context, query string) (*Result, error) {
	m.Calls++
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, query)
	}
	return &Result{Query: query, Response: "mock response"}, nil
}
