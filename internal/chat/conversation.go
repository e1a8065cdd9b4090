// Package chat composes the session store around an answerer, giving an
// otherwise stateless answer engine conversational memory.
package chat

import (
	"context"
	"fmt"

	"github.com/soyeahso/parley/internal/answer"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/logging"
	"github.com/soyeahso/parley/internal/store"
)

// Conversation wraps an answerer (typically already wrapped by the
// guardrails pipeline) with per-user session persistence.
type Conversation struct {
	sessions        *store.SessionStore
	answerer        answer.Answerer
	contextMessages int
	log             *logging.Logger
}

// New creates a session-aware conversation wrapper. contextMessages bounds
// how much history is rendered into the forwarded query.
func New(sessions *store.SessionStore, answerer answer.Answerer, contextMessages int, log *logging.Logger) *Conversation {
	if contextMessages <= 0 {
		contextMessages = 5
	}
	return &Conversation{
		sessions:        sessions,
		answerer:        answerer,
		contextMessages: contextMessages,
		log:             log.Sub("chat"),
	}
}

// Chat answers a query for userID with conversational memory: recent
// history is prepended to the query, the exchange is persisted, the
// session TTL slides, and the result is annotated with session info.
func (c *Conversation) Chat(ctx context.Context, userID, query string) (*answer.Result, error) {
	if c.sessions.GetSession(userID) == nil {
		c.sessions.CreateSession(userID)
	}

	enhanced := query
	if history := c.sessions.HistoryContext(userID, c.contextMessages); history != "" {
		enhanced = fmt.Sprintf("%s\n\nCurrent question: %s", history, query)
	}

	res, err := c.answerer.Answer(ctx, enhanced)
	if err != nil {
		return nil, err
	}

	c.sessions.AddMessage(userID, domain.RoleUser, query, nil)
	c.sessions.AddMessage(userID, domain.RoleAssistant, res.Response, res.Sources)
	c.sessions.ExtendSession(userID)

	res.UserID = userID
	res.ConversationLength = len(c.sessions.History(userID))
	res.SessionPersisted = true
	res.Backend = c.sessions.BackendName()

	c.log.Debug().
		Str("user", userID).
		Int("conversationLength", res.ConversationLength).
		Bool("blocked", res.Blocked).
		Msg("exchange persisted")
	return res, nil
}

// History returns the user's full conversation history.
func (c *Conversation) History(userID string) []domain.Message {
	return c.sessions.History(userID)
}

// ClearSession deletes the user's session.
func (c *Conversation) ClearSession(userID string) bool {
	return c.sessions.ClearSession(userID)
}
