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
		Name:    "create events",
		SQL: `
			CREATE TABLE events (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				conversation  TEXT NOT NULL,
				direction     TEXT NOT NULL,
				body          TEXT NOT NULL,
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_events_conversation ON events (conversation, id);
		`,
	},
}
