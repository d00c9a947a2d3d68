package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmcheckout/internal/entities"
)

type CampaignRepository struct {
	db *pgxpool.Pool
}

func NewCampaignRepository(db *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = "id, name, keyword, COALESCE(product_id, 0), active, created_at"

func (r *CampaignRepository) List(ctx context.Context) ([]entities.Campaign, error) {
	rows, err := r.db.Query(ctx, "SELECT "+campaignColumns+" FROM campaigns ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []entities.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Get(ctx context.Context, id int) (*entities.Campaign, error) {
	return scanCampaign(r.db.QueryRow(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", id))
}

func (r *CampaignRepository) Create(ctx context.Context, c *entities.Campaign) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO campaigns (name, keyword, product_id, active, created_at)
		VALUES ($1, $2, NULLIF($3, 0), $4, NOW())
		RETURNING id, created_at
	`, c.Name, c.Keyword, c.ProductID, c.Active).Scan(&c.ID, &c.CreatedAt)
}

func (r *CampaignRepository) Update(ctx context.Context, c *entities.Campaign) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns SET name = $1, keyword = $2, product_id = NULLIF($3, 0), active = $4
		WHERE id = $5
	`, c.Name, c.Keyword, c.ProductID, c.Active, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM campaigns WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CampaignRepository) Active(ctx context.Context) (*entities.Campaign, error) {
	return scanCampaign(r.db.QueryRow(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE active ORDER BY created_at DESC, id DESC LIMIT 1"))
}

func scanCampaign(row pgx.Row) (*entities.Campaign, error) {
	var c entities.Campaign
	if err := row.Scan(&c.ID, &c.Name, &c.Keyword, &c.ProductID, &c.Active, &c.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
