// Package sqlite implements the local history cache on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/socialhub-client/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_lines (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation TEXT NOT NULL,
	sender_id    INTEGER NOT NULL,
	sender_name  TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chat_lines_conversation
	ON chat_lines (conversation, id);
`

// SQLiteHistory implements store.History for SQLite.
type SQLiteHistory struct {
	db *sql.DB
}

// New opens (and if needed creates) the history database at dbPath.
// Use ":memory:" for an ephemeral cache.
func New(dbPath string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteHistory{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// SaveLine appends a chat line and returns its local id.
func (s *SQLiteHistory) SaveLine(ctx context.Context, line store.ChatLine) (int64, error) {
	query := `
		INSERT INTO chat_lines (conversation, sender_id, sender_name, body)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, line.Conversation, line.SenderID, line.SenderName, line.Body)
	if err != nil {
		return 0, fmt.Errorf("insert chat line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// RecentLines returns up to limit lines of a conversation, oldest first.
func (s *SQLiteHistory) RecentLines(ctx context.Context, conversation string, limit int) ([]store.ChatLine, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, conversation, sender_id, sender_name, body, created_at
		FROM (
			SELECT id, conversation, sender_id, sender_name, body, created_at
			FROM chat_lines
			WHERE conversation = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, conversation, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat lines: %w", err)
	}
	defer rows.Close()

	var lines []store.ChatLine
	for rows.Next() {
		var line store.ChatLine
		if err := rows.Scan(
			&line.ID,
			&line.Conversation,
			&line.SenderID,
			&line.SenderName,
			&line.Body,
			&line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat lines: %w", err)
	}

	return lines, nil
}
