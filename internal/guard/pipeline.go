package guard

import (
	"context"

	"github.com/soyeahso/parley/internal/answer"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/logging"
)

// apologyResponse replaces any answer that fails output validation.
const apologyResponse = "I apologize, but I cannot provide this response due to safety concerns."

// Pipeline applies the rule engine around an answerer: it validates input
// before forwarding (so blocked queries never reach the answer engine and
// PII never leaves in the forwarded query) and validates output on the way
// back. A pure decorator with no side effects of its own.
type Pipeline struct {
	engine *Engine
	next   answer.Answerer
	log    *logging.Logger
}

// NewPipeline wraps next with guardrails.
func NewPipeline(engine *Engine, next answer.Answerer, log *logging.Logger) *Pipeline {
	return &Pipeline{
		engine: engine,
		next:   next,
		log:    log.Sub("guardrails"),
	}
}

// Answer validates the query, forwards its sanitized form, and validates
// the response. Policy violations surface as a structured blocked Result,
// never as an error.
func (p *Pipeline) Answer(ctx context.Context, query string) (*answer.Result, error) {
	in := p.engine.ValidateInput(query)
	if !in.Valid {
		v := domain.HighestSeverity(in.Violations)
		p.log.Warn().Str("rule", v.Rule).Msg("input blocked")
		return &answer.Result{
			Query:      query,
			Response:   "I cannot process this request due to: " + v.Message,
			Violations: in.Violations,
			Blocked:    true,
		}, nil
	}

	res, err := p.next.Answer(ctx, in.Sanitized)
	if err != nil {
		return nil, err
	}

	out := p.engine.ValidateOutput(res.Response)
	if !out.Safe {
		v := domain.HighestSeverity(out.Violations)
		p.log.Warn().Str("rule", v.Rule).Msg("output blocked")
		res.Response = apologyResponse
		res.Violations = out.Violations
		res.Blocked = true
		return res, nil
	}

	res.Response = out.Sanitized
	if len(out.Violations) > 0 {
		res.Warnings = out.Violations
	}
	return res, nil
}
