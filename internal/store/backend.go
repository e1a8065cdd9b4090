package store

import "time"

// Backend is the key-value capability behind the SessionStore. Records are
// hash-like: named string fields under a single key. Structured values
// (message lists, metadata maps) are serialized to JSON strings by the
// caller before they reach the backend.
//
// The SessionStore picks one Backend at construction and never switches;
// both variants honor the same sliding-expiration contract.
type Backend interface {
	// Name identifies the backend ("sqlite" or "memory") in stats and logs.
	Name() string

	// Ping is a lightweight liveness probe.
	Ping() error

	// SetFields writes multiple fields of the record at key, creating the
	// record if absent.
	SetFields(key string, fields map[string]string) error

	// GetFields returns all fields of the record at key, or nil if the key
	// is absent or expired.
	GetFields(key string) (map[string]string, error)

	// GetField returns one field's raw value. The bool reports whether the
	// field exists.
	GetField(key, field string) (string, bool, error)

	// SetField writes one field, creating the record if absent.
	SetField(key, field, value string) error

	// Delete removes the record at key. Deleting an absent key is not an error.
	Delete(key string) error

	// Expire sets the record's time-to-live. A non-positive ttl expires the
	// record immediately. Expiring an absent key is a no-op.
	Expire(key string, ttl time.Duration) error

	// TTL returns the remaining time-to-live. The bool reports whether the
	// key exists; a zero duration on an existing key means no expiry is set.
	TTL(key string) (time.Duration, bool, error)

	// Keys lists all live keys starting with prefix.
	Keys(prefix string) ([]string, error)

	// Stats returns backend-specific details for reporting. Non-normative.
	Stats() map[string]string
}
