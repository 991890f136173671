package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/matchamart/storefront/internal/domain/discount"
)

const (
	findDiscountByCodeSQL = `SELECT code, description, discount_type, value,
		min_order_amount, max_discount_amount, starts_at, ends_at, is_active,
		usage_limit, usage_count, all_products, product_ids, category_ids, created_by
		FROM discounts WHERE UPPER(code) = UPPER($1)`

	// Conditional increment: the WHERE guard makes the counter bound by the
	// limit under concurrent redemptions, without a separate read.
	incrementUsageSQL = `UPDATE discounts
		SET usage_count = usage_count + 1
		WHERE UPPER(code) = UPPER($1)
		  AND (usage_limit = 0 OR usage_count < usage_limit)`

	listDiscountsSQL = `SELECT code, description, discount_type, value,
		min_order_amount, max_discount_amount, starts_at, ends_at, is_active,
		usage_limit, usage_count, all_products, product_ids, category_ids, created_by
		FROM discounts ORDER BY code`

	insertDiscountSQL = `INSERT INTO discounts (code, description, discount_type,
		value, min_order_amount, max_discount_amount, starts_at, ends_at,
		is_active, usage_limit, all_products, product_ids, category_ids, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateDiscountSQL = `UPDATE discounts SET description = $2,
		discount_type = $3, value = $4, min_order_amount = $5,
		max_discount_amount = $6, starts_at = $7, ends_at = $8, is_active = $9,
		usage_limit = $10, all_products = $11, product_ids = $12,
		category_ids = $13 WHERE UPPER(code) = UPPER($1)`

	deleteDiscountSQL = `DELETE FROM discounts WHERE UPPER(code) = UPPER($1)`

	discountExistsSQL = `SELECT EXISTS(SELECT 1 FROM discounts WHERE UPPER(code) = UPPER($1))`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a discount by its code (case-insensitive).
// Returns discount.ErrNotFound when no matching record exists.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, findDiscountByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find discount by code %q", code)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find discount by code %q", code)
	}
	return &d, nil
}

// IncrementUsage atomically increments the usage counter while it is below
// the usage limit. A zero-row update means either the guard failed or the
// code does not exist; a follow-up existence check tells the two apart.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementUsageSQL, code)
	if err != nil {
		return errors.Wrapf(err, "increment usage for discount %q", code)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, discountExistsSQL, code).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check discount %q", code)
	}
	if !exists {
		return discount.ErrNotFound
	}
	return discount.ErrExhausted
}

// List returns all discounts ordered by code.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}

	discounts, err := pgx.CollectRows(rows, scanDiscount)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return discounts, nil
}

// Create inserts a new discount. UsageCount starts at zero.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	_, err := r.pool.Exec(ctx, insertDiscountSQL,
		d.Code, d.Description, string(d.Type), d.Value,
		d.MinOrderAmount, d.MaxDiscountAmount, d.StartsAt, d.EndsAt,
		d.Active, int32(d.UsageLimit), d.AppliesTo.AllProducts,
		d.AppliesTo.ProductIDs, d.AppliesTo.CategoryIDs, d.CreatedBy,
	)
	if err != nil {
		return errors.Wrapf(err, "create discount %q", d.Code)
	}
	return nil
}

// Update rewrites every editable field of the discount identified by code.
// The usage counter is intentionally untouched; it only moves through
// IncrementUsage.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL,
		d.Code, d.Description, string(d.Type), d.Value,
		d.MinOrderAmount, d.MaxDiscountAmount, d.StartsAt, d.EndsAt,
		d.Active, int32(d.UsageLimit), d.AppliesTo.AllProducts,
		d.AppliesTo.ProductIDs, d.AppliesTo.CategoryIDs,
	)
	if err != nil {
		return errors.Wrapf(err, "update discount %q", d.Code)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// DeleteByCode removes a discount permanently. In-flight evaluations against
// a deleted code fail as not found.
func (r *DiscountRepository) DeleteByCode(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, code)
	if err != nil {
		return errors.Wrapf(err, "delete discount %q", code)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d            discount.Discount
		discountType string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		maxDiscount  decimal.Decimal
		startsAt     *time.Time
		endsAt       *time.Time
		usageLimit   int32
		usageCount   int32
	)
	err := row.Scan(
		&d.Code, &d.Description, &discountType, &value,
		&minOrder, &maxDiscount, &startsAt, &endsAt, &d.Active,
		&usageLimit, &usageCount, &d.AppliesTo.AllProducts,
		&d.AppliesTo.ProductIDs, &d.AppliesTo.CategoryIDs, &d.CreatedBy,
	)
	d.Type = discount.Type(discountType)
	d.Value = value
	d.MinOrderAmount = minOrder
	d.MaxDiscountAmount = maxDiscount
	d.StartsAt = startsAt
	d.EndsAt = endsAt
	d.UsageLimit = int(usageLimit)
	d.UsageCount = int(usageCount)
	return d, err
}
