package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchamart/storefront/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, items, subtotal, discount, total, discount_code)
	VALUES ($1, $2, $3, $4, $5, $6)`

const deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The line items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, itemsJSON, o.Subtotal, o.Discount, o.Total, o.DiscountCode,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Delete removes an order. Used to roll back an insert whose discount
// redemption lost the usage-limit race.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteOrderSQL, id); err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	return nil
}
