package convstore

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

// PostgresStore persists conversation history using pgx.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS chat_messages (
//	    id BIGSERIAL PRIMARY KEY,
//	    thread_id TEXT NOT NULL,
//	    role TEXT NOT NULL,
//	    content TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX IF NOT EXISTS chat_messages_thread_idx ON chat_messages (thread_id, id);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append inserts a message at the end of the thread.
func (s *PostgresStore) Append(ctx context.Context, threadID string, msg chat.Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_messages (thread_id, role, content)
		VALUES ($1, $2, $3)
	`, threadID, msg.Role, msg.Text)
	return err
}

// History returns the thread's messages in insertion order.
func (s *PostgresStore) History(ctx context.Context, threadID string) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, content
		FROM chat_messages
		WHERE thread_id = $1
		ORDER BY id
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.Role, &msg.Text); err != nil {
			return nil, err
		}
		history = append(history, msg)
	}
	return history, rows.Err()
}
