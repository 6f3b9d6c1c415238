package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/policydesk/policydesk/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
`

// SQLiteStore persists session logs in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sessions schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AddMessage implements Store.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg models.Message) error {
	var metadata []byte
	if msg.Metadata != nil {
		var err error
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
	}
	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, metadata, created)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	query := `SELECT id, role, content, metadata, created_at FROM messages WHERE session_id = ? ORDER BY created_at`
	args := []any{sessionID}
	if limit > 0 {
		// Take the newest rows, then re-sort ascending below.
		query = `SELECT id, role, content, metadata, created_at FROM messages WHERE session_id = ? ORDER BY created_at DESC LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read session history: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var (
			msg      models.Message
			role     string
			metadata []byte
		)
		msg.SessionID = sessionID
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = models.MessageRole(role)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode message metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }
