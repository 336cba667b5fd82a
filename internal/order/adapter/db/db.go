package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"canteen-backend/internal/config"
)

// DB wraps the pgx pool shared by the repositories.
type DB struct {
	Pool *pgxpool.Pool
}

// Start connects, pings and ensures the schema exists.
func Start(ctx context.Context, cfg config.Postgres) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{Pool: pool}
	if err := d.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return d, nil
}

func (d *DB) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_code TEXT NOT NULL,
			token TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			total_amount NUMERIC NOT NULL,
			user_status TEXT NOT NULL,
			admin_status TEXT NOT NULL,
			notification TEXT NOT NULL DEFAULT '',
			admin_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_email ON orders (email)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_code ON orders (order_code)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			item_id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity >= 1),
			unit_price NUMERIC NOT NULL CHECK (unit_price >= 0),
			rating INT,
			feedback TEXT,
			position INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			device_token TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, q := range stmts {
		if _, err := d.Pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// IsAlive pings the pool.
func (d *DB) IsAlive(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close releases the pool.
func (d *DB) Close() error {
	d.Pool.Close()
	return nil
}
