package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmcheckout/internal/entities"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "id, channel, handle, campaign_id, created_at"

// Create assigns a new id when s.ID is empty.
func (r *SessionRepository) Create(ctx context.Context, s *entities.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO dm_sessions (id, channel, handle, campaign_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`, s.ID, string(s.Channel), s.Handle, s.CampaignID).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", conflict(err))
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*entities.Session, error) {
	row := r.db.QueryRow(ctx, "SELECT "+sessionColumns+" FROM dm_sessions WHERE id = $1", id)
	return scanSession(row)
}

func (r *SessionRepository) FindByHandle(ctx context.Context, channel entities.Channel, handle string) (*entities.Session, error) {
	row := r.db.QueryRow(ctx, "SELECT "+sessionColumns+" FROM dm_sessions WHERE channel = $1 AND handle = $2", string(channel), handle)
	return scanSession(row)
}

func (r *SessionRepository) List(ctx context.Context) ([]entities.Session, error) {
	rows, err := r.db.Query(ctx, "SELECT "+sessionColumns+" FROM dm_sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []entities.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Delete removes the session and, through the foreign key, its messages.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM dm_sessions WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*entities.Session, error) {
	var (
		s          entities.Session
		channel    string
		campaignID *int
	)
	if err := row.Scan(&s.ID, &channel, &s.Handle, &campaignID, &s.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	s.Channel = entities.Channel(channel)
	s.CampaignID = campaignID
	return &s, nil
}
