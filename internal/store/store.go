package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

// Store provides the query and bulk-update capabilities the engines
// consume. It owns nothing beyond the database handle; connection
// lifecycle belongs to the caller of New.
type Store struct {
	db *sql.DB

	// mu guards the monotonic ULID entropy source.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New opens or creates a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// newKey returns a fresh record key. ULIDs are time-prefixed and the
// monotonic entropy keeps keys strictly increasing per insertion, so
// descending key order is newest-first insertion order.
func (s *Store) newKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lessons (
		record_key TEXT PRIMARY KEY,
		lesson_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		created_by INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sessions (
		record_key TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		lesson_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		question_text TEXT NOT NULL DEFAULT '',
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_lesson ON sessions(lesson_id);

	CREATE TABLE IF NOT EXISTS expectations (
		session_key TEXT NOT NULL REFERENCES sessions(record_key),
		expectation_index INTEGER NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (session_key, expectation_index)
	);

	CREATE TABLE IF NOT EXISTS user_responses (
		session_key TEXT NOT NULL REFERENCES sessions(record_key),
		answer_index INTEGER NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (session_key, answer_index)
	);

	CREATE TABLE IF NOT EXISTS expectation_scores (
		session_key TEXT NOT NULL,
		answer_index INTEGER NOT NULL,
		expectation_index INTEGER NOT NULL,
		classifier_grade TEXT NOT NULL DEFAULT '',
		grader_grade TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (session_key, answer_index, expectation_index),
		FOREIGN KEY (session_key, answer_index) REFERENCES user_responses(session_key, answer_index)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
