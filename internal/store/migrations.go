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
		Name:    "create users and auth tokens",
		SQL: `
			CREATE TABLE users (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				username    TEXT NOT NULL UNIQUE,
				password    TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE auth_tokens (
				token       TEXT PRIMARY KEY,
				user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_auth_tokens_user ON auth_tokens (user_id);
		`,
	},
	{
		Version: 2,
		Name:    "create chat sessions and chats",
		SQL: `
			CREATE TABLE chat_sessions (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				feature     TEXT NOT NULL,
				title       TEXT NOT NULL,
				timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_chat_sessions_user ON chat_sessions (user_id, feature, timestamp);

			CREATE TABLE chats (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id    INTEGER NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
				user_id       INTEGER REFERENCES users(id),
				feature       TEXT NOT NULL,
				message       TEXT,
				response      TEXT,
				search_steps  TEXT,
				timestamp     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_chats_session ON chats (session_id, id);
		`,
	},
	{
		Version: 3,
		Name:    "create saved papers",
		SQL: `
			CREATE TABLE saved_papers (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				eprint_code  TEXT NOT NULL,
				title        TEXT NOT NULL,
				UNIQUE (user_id, eprint_code)
			);
		`,
	},
}
