package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"food-orders/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// schema is applied on Open. Items are kept as a JSONB document so the row
// mirrors the order exactly as it was placed.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id            TEXT        PRIMARY KEY,
    owner_id      TEXT        NOT NULL,
    restaurant_id TEXT        NOT NULL,
    items         JSONB       NOT NULL,
    total         NUMERIC     NOT NULL,
    status        TEXT        NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_owner_created ON orders (owner_id, created_at DESC);
`

const selectColumns = `id, owner_id, restaurant_id, items, total::text, status, created_at`

type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool and applies the schema. The caller owns the
// returned store and must Close it.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Save(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("postgres: encode items: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO orders (id, owner_id, restaurant_id, items, total, status, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5::numeric, $6, $7)`,
		order.ID, order.OwnerID, order.RestaurantID, string(items), order.Total.String(), string(order.Status), order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order %s: %w", order.ID, err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id string) (*models.Order, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find order %s: %w", id, err)
	}
	return order, nil
}

func (p *Postgres) FindByOwner(ctx context.Context, ownerID string) ([]models.Order, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read owner %s: %w", ownerID, err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o      models.Order
		items  []byte
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &o.RestaurantID, &items, &total, &status, &o.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("decode total: %w", err)
	}
	o.Total = t
	o.Status = models.OrderStatus(status)
	return &o, nil
}
