package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/parley/internal/config"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/logging"
)

// keyPrefix namespaces session records in the backend.
const keyPrefix = "session:"

// fsmMetadataKey is the reserved metadata key holding the FSM blob.
const fsmMetadataKey = "fsm"

// Record field names within a session's hash record.
const (
	fieldUserID       = "user_id"
	fieldCreatedAt    = "created_at"
	fieldLastActivity = "last_activity"
	fieldMessages     = "messages"
	fieldMetadata     = "metadata"
)

const timeFormat = time.RFC3339Nano

// Options tunes a SessionStore.
type Options struct {
	// Timeout is the sliding session TTL, reset on every write.
	Timeout time.Duration
	// PreviewLength bounds each message's preview in the rendered transcript.
	PreviewLength int
}

// Stats summarizes the store for reporting.
type Stats struct {
	Backend       string            `json:"backend"`
	TotalSessions int               `json:"totalSessions"`
	Details       map[string]string `json:"details,omitempty"`
}

// SessionStore owns session records on a single Backend chosen at
// construction. Backend failures never propagate to callers: every
// operation logs the error and returns a benign zero value instead.
// Sessions are created implicitly on first write (upsert-on-write);
// CreateSession exists for explicit reset semantics.
type SessionStore struct {
	backend Backend
	timeout time.Duration
	preview int
	log     *logging.Logger

	// Per-key locks serialize read-modify-write sequences (message append,
	// metadata update) so concurrent writers on one session lose nothing.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a SessionStore on an explicit backend.
func New(backend Backend, opts Options, log *logging.Logger) *SessionStore {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Hour
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = 100
	}
	return &SessionStore{
		backend: backend,
		timeout: opts.Timeout,
		preview: opts.PreviewLength,
		log:     log.Sub("sessions"),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Open constructs a SessionStore from configuration, preferring the durable
// backend. If the durable backend cannot be opened or probed the store
// switches permanently to volatile in-memory storage for its lifetime;
// session functionality degrades rather than failing.
func Open(storeCfg config.StoreConfig, sessCfg config.SessionConfig, log *logging.Logger) *SessionStore {
	opts := Options{
		Timeout:       time.Duration(sessCfg.TimeoutSeconds) * time.Second,
		PreviewLength: sessCfg.PreviewLength,
	}

	if storeCfg.Backend != "memory" {
		if backend, err := openDurable(storeCfg.Path, log); err == nil {
			log.Sub("sessions").Info().Str("backend", backend.Name()).Msg("session store ready")
			return New(backend, opts, log)
		} else {
			log.Sub("sessions").Warn().Err(err).
				Msg("durable backend unavailable, falling back to in-memory session storage")
		}
	}

	return New(NewMemoryBackend(), opts, log)
}

func openDurable(path string, log *logging.Logger) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("no database path configured")
	}
	db, err := OpenDB(path, log)
	if err != nil {
		return nil, err
	}
	backend := NewSQLiteBackend(db, path)
	if err := backend.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("probing backend: %w", err)
	}
	return backend, nil
}

// BackendName reports which backend variant serves this store.
func (s *SessionStore) BackendName() string {
	return s.backend.Name()
}

// CreateSession initializes an empty session for userID, overwriting any
// existing one, and arms its TTL.
func (s *SessionStore) CreateSession(userID string) bool {
	key := sessionKey(userID)
	unlock := s.lockKey(key)
	defer unlock()

	if err := s.backend.Delete(key); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to reset session")
		return false
	}
	now := time.Now().UTC()
	err := s.backend.SetFields(key, map[string]string{
		fieldUserID:       userID,
		fieldCreatedAt:    now.Format(timeFormat),
		fieldLastActivity: now.Format(timeFormat),
		fieldMessages:     "[]",
		fieldMetadata:     "{}",
	})
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to create session")
		return false
	}
	if err := s.backend.Expire(key, s.timeout); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to arm session ttl")
	}

	s.log.Debug().Str("user", userID).Msg("session created")
	return true
}

// GetSession returns the stored session for userID, or nil if absent.
// Missing keys are not an error.
func (s *SessionStore) GetSession(userID string) *domain.Session {
	key := sessionKey(userID)

	fields, err := s.backend.GetFields(key)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to read session")
		return nil
	}
	if fields == nil {
		return nil
	}

	sess := &domain.Session{UserID: fields[fieldUserID]}
	if sess.UserID == "" {
		sess.UserID = userID
	}
	sess.CreatedAt = s.parseTime(fields[fieldCreatedAt])
	sess.LastActivity = s.parseTime(fields[fieldLastActivity])
	sess.Messages = s.decodeMessages(userID, fields[fieldMessages])
	sess.Metadata = s.decodeMetadata(userID, fields[fieldMetadata])
	return sess
}

// AddMessage appends one message to the session's history, creating the
// session if absent, and resets the sliding TTL.
func (s *SessionStore) AddMessage(userID, role, content string, sources []domain.Source) bool {
	key := sessionKey(userID)
	unlock := s.lockKey(key)
	defer unlock()

	msg := domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Sources:   sources,
	}

	raw, exists, err := s.backend.GetField(key, fieldMessages)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to read messages")
		return false
	}

	var msgs []domain.Message
	if exists {
		msgs = s.decodeMessages(userID, raw)
	}
	msgs = append(msgs, msg)

	data, err := json.Marshal(msgs)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to encode messages")
		return false
	}

	now := time.Now().UTC().Format(timeFormat)
	fields := map[string]string{
		fieldMessages:     string(data),
		fieldLastActivity: now,
	}
	if !exists {
		// Upsert-on-write: first append creates the session.
		fields[fieldUserID] = userID
		fields[fieldCreatedAt] = now
		fields[fieldMetadata] = "{}"
	}

	if err := s.backend.SetFields(key, fields); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to append message")
		return false
	}
	if err := s.backend.Expire(key, s.timeout); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to reset session ttl")
	}

	s.log.Debug().Str("user", userID).Str("role", role).Msg("message added")
	return true
}

// History returns the full conversation history, oldest first.
// Returns an empty slice if no session exists.
func (s *SessionStore) History(userID string) []domain.Message {
	raw, exists, err := s.backend.GetField(sessionKey(userID), fieldMessages)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to read history")
		return nil
	}
	if !exists {
		return nil
	}
	return s.decodeMessages(userID, raw)
}

// LastN returns at most n messages from the end of the history,
// oldest-first within that suffix.
func (s *SessionStore) LastN(userID string, n int) []domain.Message {
	history := s.History(userID)
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// HistoryContext renders the last maxMessages as a role-labeled transcript
// for injection into a prompt. Each message is truncated to the configured
// preview length. Returns "" if there is no history.
func (s *SessionStore) HistoryContext(userID string, maxMessages int) string {
	msgs := s.LastN(userID, maxMessages)
	if len(msgs) == 0 {
		return ""
	}

	lines := make([]string, 0, len(msgs)+1)
	lines = append(lines, "Previous conversation:")
	for _, msg := range msgs {
		label := "Assistant"
		if msg.Role == domain.RoleUser {
			label = "You"
		}
		lines = append(lines, fmt.Sprintf("%s: %s...", label, preview(msg.Content, s.preview)))
	}
	return strings.Join(lines, "\n")
}

// ClearSession deletes the session unconditionally. Idempotent.
func (s *SessionStore) ClearSession(userID string) bool {
	if err := s.backend.Delete(sessionKey(userID)); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to clear session")
		return false
	}
	s.log.Debug().Str("user", userID).Msg("session cleared")
	return true
}

// ActiveSessions returns the user IDs of all live sessions. Best-effort:
// the enumeration may be approximate under concurrent writes.
func (s *SessionStore) ActiveSessions() []string {
	keys, err := s.backend.Keys(keyPrefix)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list sessions")
		return nil
	}
	users := make([]string, 0, len(keys))
	for _, key := range keys {
		users = append(users, strings.TrimPrefix(key, keyPrefix))
	}
	return users
}

// GetStats reports which backend is active and a coarse session count.
func (s *SessionStore) GetStats() Stats {
	return Stats{
		Backend:       s.backend.Name(),
		TotalSessions: len(s.ActiveSessions()),
		Details:       s.backend.Stats(),
	}
}

// ExtendSession resets the session TTL without mutating content. Heartbeat.
func (s *SessionStore) ExtendSession(userID string) bool {
	if err := s.backend.Expire(sessionKey(userID), s.timeout); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to extend session")
		return false
	}
	return true
}

// RemainingTTL returns the session's remaining time-to-live. The bool
// reports whether the session exists.
func (s *SessionStore) RemainingTTL(userID string) (time.Duration, bool) {
	ttl, ok, err := s.backend.TTL(sessionKey(userID))
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to read session ttl")
		return 0, false
	}
	return ttl, ok
}

// Metadata returns the session's metadata mapping. Empty map if absent.
func (s *SessionStore) Metadata(userID string) map[string]any {
	return s.metadata(userID)
}

// SetMetadata replaces the metadata mapping wholesale (not a merge) and
// resets the sliding TTL. Callers needing a partial update must
// read-modify-write.
func (s *SessionStore) SetMetadata(userID string, metadata map[string]any) bool {
	key := sessionKey(userID)
	unlock := s.lockKey(key)
	defer unlock()
	return s.setMetadataLocked(userID, metadata)
}

// SetFSMState persists a workflow checkpoint under the reserved metadata
// key, stamping it with the current time.
func (s *SessionStore) SetFSMState(userID, state string, context map[string]any) bool {
	key := sessionKey(userID)
	unlock := s.lockKey(key)
	defer unlock()

	meta := s.metadata(userID)
	meta[fsmMetadataKey] = domain.FSMState{
		State:     state,
		Context:   context,
		UpdatedAt: time.Now().UTC(),
	}
	return s.setMetadataLocked(userID, meta)
}

// FSMState returns the persisted workflow checkpoint, or nil if none is set.
func (s *SessionStore) FSMState(userID string) *domain.FSMState {
	meta := s.metadata(userID)
	raw, ok := meta[fsmMetadataKey]
	if !ok {
		return nil
	}

	// The blob round-trips through JSON, so it may be a typed struct (just
	// written) or a generic map (read back from the backend).
	data, err := json.Marshal(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("unreadable fsm blob")
		return nil
	}
	var fsm domain.FSMState
	if err := json.Unmarshal(data, &fsm); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("malformed fsm blob")
		return nil
	}
	return &fsm
}

func (s *SessionStore) metadata(userID string) map[string]any {
	raw, exists, err := s.backend.GetField(sessionKey(userID), fieldMetadata)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to read metadata")
		return map[string]any{}
	}
	if !exists {
		return map[string]any{}
	}
	return s.decodeMetadata(userID, raw)
}

func (s *SessionStore) setMetadataLocked(userID string, metadata map[string]any) bool {
	key := sessionKey(userID)

	data, err := json.Marshal(metadata)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to encode metadata")
		return false
	}

	_, exists, err := s.backend.GetField(key, fieldUserID)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to read session")
		return false
	}

	now := time.Now().UTC().Format(timeFormat)
	fields := map[string]string{
		fieldMetadata:     string(data),
		fieldLastActivity: now,
	}
	if !exists {
		fields[fieldUserID] = userID
		fields[fieldCreatedAt] = now
		fields[fieldMessages] = "[]"
	}

	if err := s.backend.SetFields(key, fields); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to write metadata")
		return false
	}
	if err := s.backend.Expire(key, s.timeout); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to reset session ttl")
	}
	return true
}

// decodeMessages tolerates malformed persisted JSON: it logs a warning and
// returns no messages instead of failing. The raw string stays readable
// through Backend.GetField.
func (s *SessionStore) decodeMessages(userID, raw string) []domain.Message {
	if raw == "" {
		return nil
	}
	var msgs []domain.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("stored messages are not valid JSON")
		return nil
	}
	return msgs
}

// decodeMetadata tolerates malformed persisted JSON the same way.
func (s *SessionStore) decodeMetadata(userID, raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("stored metadata is not valid JSON")
		return map[string]any{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta
}

// lockKey returns an unlock func for the per-key mutex, creating it on
// first use. Locks are never reclaimed; the set of keys is small.
func (s *SessionStore) lockKey(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *SessionStore) parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		s.log.Warn().Str("value", raw).Msg("unparseable stored timestamp")
		return time.Time{}
	}
	return t
}

func sessionKey(userID string) string {
	return keyPrefix + userID
}

func preview(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
