package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vreyes/stakecraft/engine/session"
)

// ErrNotFound is returned for missing sessions.
var ErrNotFound = errors.New("not found")

// Store persists sessions and cached per-day effect resolutions in
// SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for
// tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	player_name TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_effects (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	day        INTEGER NOT NULL,
	deltas     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (session_id, day)
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SessionRecord is one stored session.
type SessionRecord struct {
	ID         string    `json:"session_id"`
	PlayerName string    `json:"player_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(id, playerName string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, player_name, created_at) VALUES (?, ?, ?)`,
		id, playerName, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession fetches one session row.
func (s *Store) GetSession(id string) (SessionRecord, error) {
	var rec SessionRecord
	var created string
	err := s.db.QueryRow(
		`SELECT id, player_name, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.PlayerName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("querying session: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return rec, nil
}

// GetDayEffects returns the cached deltas for (session, day), or
// ErrNotFound when the day has not been resolved yet.
func (s *Store) GetDayEffects(sessionID string, day int) (session.DayDeltas, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT deltas FROM daily_effects WHERE session_id = ? AND day = ?`,
		sessionID, day,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return session.DayDeltas{}, ErrNotFound
	}
	if err != nil {
		return session.DayDeltas{}, fmt.Errorf("querying day effects: %w", err)
	}
	var deltas session.DayDeltas
	if err := json.Unmarshal([]byte(raw), &deltas); err != nil {
		return session.DayDeltas{}, fmt.Errorf("decoding cached deltas: %w", err)
	}
	return deltas, nil
}

// SaveDayEffects caches the computed deltas for (session, day).
func (s *Store) SaveDayEffects(sessionID string, day int, deltas session.DayDeltas) error {
	raw, err := json.Marshal(deltas)
	if err != nil {
		return fmt.Errorf("encoding deltas: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO daily_effects (session_id, day, deltas, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, day) DO NOTHING`,
		sessionID, day, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting day effects: %w", err)
	}
	return nil
}
