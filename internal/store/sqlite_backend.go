package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLiteBackend is the durable Backend variant, storing hash-like records
// in two tables: one row per key (with its expiry) and one row per field.
// Expiry is enforced lazily: expired records are purged on access, so no
// background timer is needed.
type SQLiteBackend struct {
	db   *DB
	path string
}

// NewSQLiteBackend creates a durable backend using the given database.
func NewSQLiteBackend(db *DB, path string) *SQLiteBackend {
	return &SQLiteBackend{db: db, path: path}
}

// Name identifies the backend in stats and logs.
func (b *SQLiteBackend) Name() string { return "sqlite" }

// Ping reports whether the database is reachable.
func (b *SQLiteBackend) Ping() error {
	return b.db.sql.Ping()
}

// SetFields writes multiple fields of the record at key, creating the
// record if absent.
func (b *SQLiteBackend) SetFields(key string, fields map[string]string) error {
	tx, err := b.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin set fields: %w", err)
	}

	if _, err := tx.Exec(`INSERT OR IGNORE INTO kv_entries (key) VALUES (?)`, key); err != nil {
		tx.Rollback()
		return fmt.Errorf("ensuring entry %q: %w", key, err)
	}

	for field, value := range fields {
		if _, err := tx.Exec(
			`INSERT INTO kv_fields (key, field, value) VALUES (?, ?, ?)
			 ON CONFLICT(key, field) DO UPDATE SET value = excluded.value`,
			key, field, value,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("setting field %q on %q: %w", field, key, err)
		}
	}

	return tx.Commit()
}

// GetFields returns all fields of the record at key, or nil if absent.
func (b *SQLiteBackend) GetFields(key string) (map[string]string, error) {
	if err := b.expireIfDue(key); err != nil {
		return nil, err
	}

	var exists int
	err := b.db.sql.QueryRow(`SELECT COUNT(*) FROM kv_entries WHERE key = ?`, key).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking entry %q: %w", key, err)
	}
	if exists == 0 {
		return nil, nil
	}

	rows, err := b.db.sql.Query(`SELECT field, value FROM kv_fields WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("reading fields of %q: %w", key, err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		fields[field] = value
	}
	return fields, rows.Err()
}

// GetField returns one field's raw value.
func (b *SQLiteBackend) GetField(key, field string) (string, bool, error) {
	if err := b.expireIfDue(key); err != nil {
		return "", false, err
	}

	var value string
	err := b.db.sql.QueryRow(
		`SELECT value FROM kv_fields WHERE key = ? AND field = ?`, key, field,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading field %q of %q: %w", field, key, err)
	}
	return value, true, nil
}

// SetField writes one field, creating the record if absent.
func (b *SQLiteBackend) SetField(key, field, value string) error {
	return b.SetFields(key, map[string]string{field: value})
}

// Delete removes the record at key and its field rows.
//
// Field rows are removed explicitly rather than via ON DELETE CASCADE: the
// foreign_keys pragma is per-connection and database/sql does not guarantee
// it on every pooled connection.
func (b *SQLiteBackend) Delete(key string) error {
	tx, err := b.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM kv_fields WHERE key = ?`, key); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting fields of %q: %w", key, err)
	}
	if _, err := tx.Exec(`DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting entry %q: %w", key, err)
	}
	return tx.Commit()
}

// Expire sets the record's time-to-live.
func (b *SQLiteBackend) Expire(key string, ttl time.Duration) error {
	deadline := time.Now().Add(ttl).UnixMilli()
	_, err := b.db.sql.Exec(
		`UPDATE kv_entries SET expires_at = ? WHERE key = ?`, deadline, key,
	)
	return err
}

// TTL returns the remaining time-to-live for key.
func (b *SQLiteBackend) TTL(key string) (time.Duration, bool, error) {
	if err := b.expireIfDue(key); err != nil {
		return 0, false, err
	}

	var expiresAt sql.NullInt64
	err := b.db.sql.QueryRow(`SELECT expires_at FROM kv_entries WHERE key = ?`, key).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading expiry of %q: %w", key, err)
	}
	if !expiresAt.Valid {
		return 0, true, nil
	}
	return time.Until(time.UnixMilli(expiresAt.Int64)), true, nil
}

// Keys lists all live keys starting with prefix.
func (b *SQLiteBackend) Keys(prefix string) ([]string, error) {
	if err := b.purgeExpired(); err != nil {
		return nil, err
	}

	// Prefixes are fixed strings ("session:"), no LIKE wildcards to escape.
	rows, err := b.db.sql.Query(
		`SELECT key FROM kv_entries WHERE key LIKE ? || '%' ORDER BY key`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Stats returns backend-specific details.
func (b *SQLiteBackend) Stats() map[string]string {
	return map[string]string{"path": b.path}
}

// expireIfDue removes the record at key, fields included, if its expiry has
// passed. Field rows go first so a missing foreign_keys pragma on the serving
// connection cannot leave them behind.
func (b *SQLiteBackend) expireIfDue(key string) error {
	tx, err := b.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin expiry: %w", err)
	}
	now := time.Now().UnixMilli()
	if _, err := tx.Exec(
		`DELETE FROM kv_fields WHERE key = ? AND EXISTS (
			SELECT 1 FROM kv_entries WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?
		)`,
		key, key, now,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("expiring fields of %q: %w", key, err)
	}
	if _, err := tx.Exec(
		`DELETE FROM kv_entries WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		key, now,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("expiring entry %q: %w", key, err)
	}
	return tx.Commit()
}

// purgeExpired removes all records, fields included, whose expiry has passed.
func (b *SQLiteBackend) purgeExpired() error {
	tx, err := b.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	now := time.Now().UnixMilli()
	if _, err := tx.Exec(
		`DELETE FROM kv_fields WHERE key IN (
			SELECT key FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?
		)`,
		now,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("purging expired fields: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`, now,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("purging expired entries: %w", err)
	}
	return tx.Commit()
}
