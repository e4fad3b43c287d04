// Package sqlitestore persists transcript entries in a local SQLite file so a
// conversation can be reviewed after the client exits.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcript_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	author     TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS transcript_entries_session ON transcript_entries(session_id, seq);
`

const timeLayout = time.RFC3339Nano

// uriPath escapes the characters SQLite's URI filename parser treats as
// syntax, so they stay part of the file name.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// Store is a transcript.Sink writing one row per entry.
type Store struct {
	db        *sql.DB
	sessionID string
}

// Record is a persisted entry together with the session it belongs to.
type Record struct {
	SessionID string
	Entry     transcript.Entry
}

// Open opens (creating if needed) the database at path. Entries recorded
// through the returned store are tagged with sessionID. A nil logger uses
// slog.Default.
func Open(path, sessionID string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
	}

	dsn := "file:" + uriPath.Replace(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping transcript db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate transcript db: %w", err)
	}

	logger.Debug("transcript store opened", "path", path, "session_id", sessionID)
	return &Store{db: db, sessionID: sessionID}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements transcript.Sink.
func (s *Store) Record(e transcript.Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO transcript_entries (id, session_id, author, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, s.sessionID, e.Author.String(), e.Text, e.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record transcript entry: %w", err)
	}
	return nil
}

// List returns persisted entries in insertion order. An empty sessionID lists
// every session; limit <= 0 means no limit (newest entries are kept when
// limited).
func (s *Store) List(sessionID string, limit int) ([]Record, error) {
	query := `SELECT session_id, id, author, text, created_at FROM transcript_entries`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcript entries: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			author    string
			createdAt string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Entry.ID, &author, &rec.Entry.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		rec.Entry.Author = transcript.ParseAuthor(author)
		if at, err := time.Parse(timeLayout, createdAt); err == nil {
			rec.Entry.At = at
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transcript entries: %w", err)
	}

	// Rows come newest first so LIMIT keeps the tail; flip back to insertion order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
