package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create kv entries and fields",
		SQL: `
			CREATE TABLE kv_entries (
				key        TEXT PRIMARY KEY,
				expires_at INTEGER
			);

			CREATE INDEX idx_kv_entries_expiry ON kv_entries (expires_at);

			CREATE TABLE kv_fields (
				key   TEXT NOT NULL REFERENCES kv_entries(key) ON DELETE CASCADE,
				field TEXT NOT NULL,
				value TEXT NOT NULL,
				PRIMARY KEY (key, field)
			);
		`,
	},
}
