// Package store is the lexical persistence layer: a SQLite database
// holding normalized messages plus derived URL, entity, and scheduling
// rows, with an FTS5 index over content for full-text queries.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	chat_id TEXT NOT NULL,
	chat_name TEXT NOT NULL DEFAULT '',
	is_group INTEGER NOT NULL DEFAULT 0,
	sender_name TEXT NOT NULL DEFAULT '',
	sender_number TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	timestamp INTEGER NOT NULL DEFAULT 0,
	message_type TEXT NOT NULL DEFAULT 'text',
	languages TEXT NOT NULL DEFAULT '["unknown"]',
	is_from_me INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_chat_ts ON messages(chat_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_name);
CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(timestamp);

CREATE TABLE IF NOT EXISTS urls (
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	purpose TEXT NOT NULL DEFAULT 'general',
	context_before TEXT NOT NULL DEFAULT '',
	context_after TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_urls_message ON urls(message_id);

CREATE TABLE IF NOT EXISTS entities (
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	value TEXT NOT NULL,
	parsed_time INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entities_message ON entities(message_id);
CREATE INDEX IF NOT EXISTS idx_entities_type_value ON entities(type, value);

CREATE TABLE IF NOT EXISTS scheduling (
	message_id TEXT PRIMARY KEY REFERENCES messages(id) ON DELETE CASCADE,
	is_scheduling INTEGER NOT NULL DEFAULT 0,
	participants TEXT NOT NULL DEFAULT '[]',
	locations TEXT NOT NULL DEFAULT '[]',
	activities TEXT NOT NULL DEFAULT '[]',
	time_refs TEXT NOT NULL DEFAULT '[]',
	confirmations TEXT NOT NULL DEFAULT '[]',
	urgent INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS embedding_cache (
	hash TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	embedding TEXT NOT NULL,
	dims INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
	PRIMARY KEY (hash, provider, model)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content=messages,
	content_rowid=rowid,
	tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_fts_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_fts_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_fts_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`

// Store is the SQLite-backed lexical store. Writes take the exclusive
// lock; reads run concurrently under the shared lock.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// Open opens (or creates) the database at dbPath in WAL mode and runs
// schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("lexical store opened", "path", dbPath)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
