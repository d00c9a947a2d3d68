package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"dmcheckout/internal/entities"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{
		db: db,
	}
}

const productColumns = "id, title, description, price_cents, updated_at"

func (r *ProductRepository) List(ctx context.Context) ([]entities.Product, error) {
	rows, err := r.db.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *ProductRepository) Get(ctx context.Context, id int) (*entities.Product, error) {
	var p entities.Product
	err := r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *entities.Product) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (title, description, price_cents, updated_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, updated_at
	`, p.Title, p.Description, p.PriceCents).Scan(&p.ID, &p.UpdatedAt)
	return conflict(err)
}

func (r *ProductRepository) Update(ctx context.Context, p *entities.Product) error {
	err := r.db.QueryRow(ctx, `
		UPDATE products SET title = $1, description = $2, price_cents = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`, p.Title, p.Description, p.PriceCents, p.ID).Scan(&p.UpdatedAt)
	return notFound(err)
}

func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportCSV upserts products from CSV with a header row of
// title,description,price where price is in major units ("29.00").
// Malformed rows are skipped and logged; the count of imported rows is returned.
func (r *ProductRepository) ImportCSV(ctx context.Context, src io.Reader) (int, error) {
	rows, err := ParseProductCSV(src)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, p := range rows {
		_, err := r.db.Exec(ctx, `
			INSERT INTO products (title, description, price_cents, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (title) DO UPDATE
			SET description = EXCLUDED.description,
			    price_cents = EXCLUDED.price_cents,
			    updated_at = NOW();
		`, p.Title, p.Description, p.PriceCents)
		if err != nil {
			log.Warn().Err(err).Str("title", p.Title).Msg("failed to import product")
			continue
		}
		imported++
	}
	return imported, nil
}

// ParseProductCSV reads product rows. Rows with a missing title or an
// unparseable price are skipped.
func ParseProductCSV(src io.Reader) ([]entities.Product, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty CSV")
	}
	header := records[0]
	if len(header) < 3 || !strings.EqualFold(strings.TrimSpace(header[0]), "title") || !strings.EqualFold(strings.TrimSpace(header[2]), "price") {
		return nil, errors.New("CSV header must be title,description,price")
	}

	products := []entities.Product{}
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 3 || strings.TrimSpace(rec[0]) == "" {
			log.Warn().Int("line", i+1).Msg("skipping incomplete product row")
			continue
		}
		cents, err := ParsePriceCents(rec[2])
		if err != nil {
			log.Warn().Int("line", i+1).Str("price", rec[2]).Msg("skipping product row with bad price")
			continue
		}
		products = append(products, entities.Product{
			Title:       strings.TrimSpace(rec[0]),
			Description: strings.TrimSpace(rec[1]),
			PriceCents:  cents,
		})
	}
	return products, nil
}

// ParsePriceCents converts "29", "29.9", "$1,250.00" into minor units.
func ParsePriceCents(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, errors.New("empty price")
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) || f*100 >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return int64(math.Round(f * 100)), nil
}

func scanProducts(rows pgx.Rows) ([]entities.Product, error) {
	products := []entities.Product{}
	for rows.Next() {
		var p entities.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
