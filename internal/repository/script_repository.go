package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmcheckout/internal/entities"
)

type ScriptRepository struct {
	db *pgxpool.Pool
}

func NewScriptRepository(db *pgxpool.Pool) *ScriptRepository {
	return &ScriptRepository{db: db}
}

const scriptColumns = "id, name, category, body, updated_at"

func (r *ScriptRepository) List(ctx context.Context) ([]entities.Script, error) {
	rows, err := r.db.Query(ctx, "SELECT "+scriptColumns+" FROM scripts ORDER BY category, updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scripts := []entities.Script{}
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *s)
	}
	return scripts, rows.Err()
}

func (r *ScriptRepository) Get(ctx context.Context, id int) (*entities.Script, error) {
	return scanScript(r.db.QueryRow(ctx, "SELECT "+scriptColumns+" FROM scripts WHERE id = $1", id))
}

func (r *ScriptRepository) Create(ctx context.Context, s *entities.Script) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO scripts (name, category, body, updated_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, updated_at
	`, s.Name, string(s.Category), s.Body).Scan(&s.ID, &s.UpdatedAt)
}

func (r *ScriptRepository) Update(ctx context.Context, s *entities.Script) error {
	err := r.db.QueryRow(ctx, `
		UPDATE scripts SET name = $1, category = $2, body = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`, s.Name, string(s.Category), s.Body, s.ID).Scan(&s.UpdatedAt)
	return notFound(err)
}

func (r *ScriptRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM scripts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Active picks the most recently edited script in each category.
func (r *ScriptRepository) Active(ctx context.Context) (map[entities.Stage]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (category) category, body
		FROM scripts
		ORDER BY category, updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	active := make(map[entities.Stage]string)
	for rows.Next() {
		var category, body string
		if err := rows.Scan(&category, &body); err != nil {
			return nil, err
		}
		if stage, ok := entities.ParseStage(category); ok {
			active[stage] = body
		}
	}
	return active, rows.Err()
}

func scanScript(row pgx.Row) (*entities.Script, error) {
	var (
		s        entities.Script
		category string
	)
	if err := row.Scan(&s.ID, &s.Name, &category, &s.Body, &s.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	s.Category = entities.Stage(category)
	return &s, nil
}
