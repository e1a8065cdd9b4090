package store

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend is the volatile Backend variant: process-local maps guarded
// by a mutex. It honors the same lazy-expiry contract as the durable
// backend so sliding TTLs behave identically in fallback mode.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[string]string
	expiry  map[string]time.Time // zero value means no expiry
}

// NewMemoryBackend creates a volatile in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]map[string]string),
		expiry:  make(map[string]time.Time),
	}
}

// Name identifies the backend in stats and logs.
func (b *MemoryBackend) Name() string { return "memory" }

// Ping always succeeds.
func (b *MemoryBackend) Ping() error { return nil }

// SetFields writes multiple fields of the record at key, creating the
// record if absent.
func (b *MemoryBackend) SetFields(key string, fields map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireIfDueLocked(key)
	rec, ok := b.records[key]
	if !ok {
		rec = make(map[string]string, len(fields))
		b.records[key] = rec
	}
	for field, value := range fields {
		rec[field] = value
	}
	return nil
}

// GetFields returns a copy of all fields at key, or nil if absent.
func (b *MemoryBackend) GetFields(key string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireIfDueLocked(key)
	rec, ok := b.records[key]
	if !ok {
		return nil, nil
	}
	out := make(map[string]string, len(rec))
	for field, value := range rec {
		out[field] = value
	}
	return out, nil
}

// GetField returns one field's raw value.
func (b *MemoryBackend) GetField(key, field string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireIfDueLocked(key)
	rec, ok := b.records[key]
	if !ok {
		return "", false, nil
	}
	value, ok := rec[field]
	return value, ok, nil
}

// SetField writes one field, creating the record if absent.
func (b *MemoryBackend) SetField(key, field, value string) error {
	return b.SetFields(key, map[string]string{field: value})
}

// Delete removes the record at key.
func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, key)
	delete(b.expiry, key)
	return nil
}

// Expire sets the record's time-to-live.
func (b *MemoryBackend) Expire(key string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[key]; !ok {
		return nil
	}
	b.expiry[key] = time.Now().Add(ttl)
	return nil
}

// TTL returns the remaining time-to-live for key.
func (b *MemoryBackend) TTL(key string) (time.Duration, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireIfDueLocked(key)
	if _, ok := b.records[key]; !ok {
		return 0, false, nil
	}
	deadline, ok := b.expiry[key]
	if !ok || deadline.IsZero() {
		return 0, true, nil
	}
	return time.Until(deadline), true, nil
}

// Keys lists all live keys starting with prefix.
func (b *MemoryBackend) Keys(prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	var keys []string
	for key := range b.records {
		if deadline, ok := b.expiry[key]; ok && !deadline.IsZero() && !deadline.After(now) {
			delete(b.records, key)
			delete(b.expiry, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Stats returns backend-specific details.
func (b *MemoryBackend) Stats() map[string]string {
	return map[string]string{"note": "fallback mode (durable backend not available)"}
}

// expireIfDueLocked removes the record at key if its expiry has passed.
// Caller must hold the mutex.
func (b *MemoryBackend) expireIfDueLocked(key string) {
	deadline, ok := b.expiry[key]
	if !ok || deadline.IsZero() {
		return
	}
	if !deadline.After(time.Now()) {
		delete(b.records, key)
		delete(b.expiry, key)
	}
}
