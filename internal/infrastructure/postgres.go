package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}
	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// migrations run in order on every start; each statement is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`},
	{"scripts", `
		CREATE TABLE IF NOT EXISTS scripts (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(20) NOT NULL,
			body TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`},
	{"scripts_category_idx", `CREATE INDEX IF NOT EXISTS scripts_category_idx ON scripts (category, updated_at DESC);`},
	{"campaigns", `
		CREATE TABLE IF NOT EXISTS campaigns (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			keyword VARCHAR(100) NOT NULL,
			product_id INT REFERENCES products(id) ON DELETE SET NULL,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`},
	{"settings", `
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`},
	{"dm_sessions", `
		CREATE TABLE IF NOT EXISTS dm_sessions (
			id VARCHAR(36) PRIMARY KEY,
			channel VARCHAR(20) NOT NULL,
			handle VARCHAR(255) NOT NULL,
			campaign_id INT REFERENCES campaigns(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (channel, handle)
		);`},
	// Stage markers travel inside body, see autoreply.AttachStageMarker.
	{"dm_messages", `
		CREATE TABLE IF NOT EXISTS dm_messages (
			id BIGSERIAL PRIMARY KEY,
			session_id VARCHAR(36) NOT NULL REFERENCES dm_sessions(id) ON DELETE CASCADE,
			role VARCHAR(10) NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`},
	{"dm_messages_session_idx", `CREATE INDEX IF NOT EXISTS dm_messages_session_idx ON dm_messages (session_id, id);`},
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := p.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	log.Info().Int("steps", len(migrations)).Msg("database schema ready")
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
