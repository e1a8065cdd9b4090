package guard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soyeahso/parley/internal/answer"
	"github.com/soyeahso/parley/internal/config"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(t *testing.T, mock *answer.Mock) *Pipeline {
	t.Helper()
	engine := NewEngine(config.GuardrailsConfig{
		MaxInputLength:  100,
		MaxOutputLength: 120,
	}, logging.Nop())
	return NewPipeline(engine, mock, logging.Nop())
}

func TestPipeline_CleanPassThrough(t *testing.T) {
	mock := &answer.Mock{}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), "what is the return policy?")
	require.NoError(t, err)
	assert.False(t, res.Blocked)
	assert.Equal(t, "mock response", res.Response)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, mock.Calls)
}

func TestPipeline_BlockedInput_NeverReachesAnswerer(t *testing.T) {
	mock := &answer.Mock{}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), strings.Repeat("x", 101))
	require.NoError(t, err)

	assert.True(t, res.Blocked)
	assert.True(t, strings.HasPrefix(res.Response, "I cannot process this request due to: "))
	assert.NotEmpty(t, res.Violations)
	assert.Equal(t, 0, mock.Calls)
}

func TestPipeline_EmptyInput_Blocked(t *testing.T) {
	mock := &answer.Mock{}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Contains(t, res.Response, "Input cannot be empty")
	assert.Equal(t, 0, mock.Calls)
}

func TestPipeline_InputPII_ForwardedRedacted(t *testing.T) {
	var forwarded string
	mock := &answer.Mock{
		AnswerFunc: func(ctx context.Context, query string) (*answer.Result, error) {
			forwarded = query
			return &answer.Result{Query: query, Response: "done"}, nil
		},
	}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), "update my email to alice@example.com")
	require.NoError(t, err)

	// PII in input is tolerated but never leaves in the forwarded query
	assert.False(t, res.Blocked)
	assert.Contains(t, forwarded, "[REDACTED_EMAIL]")
	assert.NotContains(t, forwarded, "alice@example.com")
}

func TestPipeline_OutputPII_Apology(t *testing.T) {
	mock := &answer.Mock{
		AnswerFunc: func(ctx context.Context, query string) (*answer.Result, error) {
			return &answer.Result{Query: query, Response: "her email is carol@example.com"}, nil
		},
	}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), "what is carol's contact?")
	require.NoError(t, err)

	assert.True(t, res.Blocked)
	assert.Equal(t, apologyResponse, res.Response)
	assert.NotContains(t, res.Response, "carol@example.com")
	require.NotNil(t, domain.HighestSeverity(res.Violations))
}

func TestPipeline_OutputOverLength_WarnedNotBlocked(t *testing.T) {
	mock := &answer.Mock{
		AnswerFunc: func(ctx context.Context, query string) (*answer.Result, error) {
			return &answer.Result{Query: query, Response: strings.Repeat("a", 130)}, nil
		},
	}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), "tell me everything")
	require.NoError(t, err)

	assert.False(t, res.Blocked)
	assert.Equal(t, strings.Repeat("a", 120)+"...", res.Response)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, RuleMaxLength, res.Warnings[0].Rule)
}

func TestPipeline_AnswererError_Propagates(t *testing.T) {
	wantErr := errors.New("engine offline")
	mock := &answer.Mock{
		AnswerFunc: func(ctx context.Context, query string) (*answer.Result, error) {
			return nil, wantErr
		},
	}
	p := testPipeline(t, mock)

	_, err := p.Answer(context.Background(), "hello")
	assert.ErrorIs(t, err, wantErr)
}

func TestPipeline_SourcesPreserved(t *testing.T) {
	mock := &answer.Mock{
		AnswerFunc: func(ctx context.Context, query string) (*answer.Result, error) {
			return &answer.Result{
				Query:    query,
				Response: "see the docs",
				Sources:  []domain.Source{{Content: "doc excerpt"}},
			}, nil
		},
	}
	p := testPipeline(t, mock)

	res, err := p.Answer(context.Background(), "where is this documented?")
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "doc excerpt", res.Sources[0].Content)
}
