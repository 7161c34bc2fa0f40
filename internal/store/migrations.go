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
		Name:    "create users",
		SQL: `
			CREATE TABLE users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_users_email ON users (email);
		`,
	},
	{
		Version: 2,
		Name:    "create tasks",
		SQL: `
			CREATE TABLE tasks (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				owner_id    TEXT NOT NULL,
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				completed   INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_tasks_owner ON tasks (owner_id, id);
			CREATE INDEX idx_tasks_owner_completed ON tasks (owner_id, completed);
		`,
	},
	{
		Version: 3,
		Name:    "create conversations and messages",
		SQL: `
			CREATE TABLE conversations (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				owner_id    TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_conversations_owner ON conversations (owner_id, updated_at);

			CREATE TABLE messages (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				owner_id        TEXT NOT NULL,
				role            TEXT NOT NULL,
				content         TEXT NOT NULL,
				tool_calls      TEXT,
				created_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_conversation ON messages (conversation_id, id);
		`,
	},
}
