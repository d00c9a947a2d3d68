package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dmcheckout/internal/autoreply"
	"dmcheckout/internal/entities"
)

// MessageRepository stores DM messages in an append-only table. The stage of
// an engine reply is encoded into the body with a marker and decoded on read.
type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(ctx context.Context, msg *entities.Message) error {
	body := msg.Text
	if msg.Role == entities.RoleOutbound && msg.Stage != "" {
		body = autoreply.AttachStageMarker(msg.Text, msg.Stage)
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO dm_messages (session_id, role, body, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, msg.SessionID, string(msg.Role), body).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *MessageRepository) History(ctx context.Context, sessionID string) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, role, body, created_at
		FROM dm_messages WHERE session_id = $1 ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	history := []entities.Message{}
	for rows.Next() {
		var (
			m    entities.Message
			role string
			body string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &body, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = entities.Role(role)
		m.Text, m.Stage, _ = autoreply.ParseStageMarker(body)
		if m.Role != entities.RoleOutbound {
			m.Stage = ""
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// DeleteSession clears the thread but keeps the session row.
func (r *MessageRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM dm_messages WHERE session_id = $1", sessionID)
	return err
}

// StageCounts counts outbound engine replies per stage across all sessions.
func (r *MessageRepository) StageCounts(ctx context.Context) (map[entities.Stage]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT body FROM dm_messages
		WHERE role = 'outbound' AND body LIKE '%[[stage:%]]'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[entities.Stage]int)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		if _, stage, ok := autoreply.ParseStageMarker(body); ok {
			counts[stage]++
		}
	}
	return counts, rows.Err()
}
