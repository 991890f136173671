package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount to the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount capped at the subtotal.
	TypeFixed Type = "fixed"
)

// Eligibility failures. Evaluate folds these into an invalid
// CalculationResult; only storage failures escape as returned errors.
var (
	// ErrNotFound is returned when no discount exists for a code.
	ErrNotFound = errors.New("discount code not found")
	// ErrInactive is returned when an admin has disabled the discount.
	ErrInactive = errors.New("discount is not active")
	// ErrNotStarted is returned when the validity window has not opened yet.
	ErrNotStarted = errors.New("discount is not yet valid")
	// ErrExpired is returned when the validity window has closed.
	ErrExpired = errors.New("discount has expired")
	// ErrExhausted is returned when the usage limit has been reached.
	ErrExhausted = errors.New("discount usage limit reached")
	// ErrBelowMinimum is returned when the order subtotal is below the
	// discount's minimum order amount.
	ErrBelowMinimum = errors.New("order does not meet minimum amount")
	// ErrOutOfScope is returned when no cart item matches the discount's
	// product/category restriction.
	ErrOutOfScope = errors.New("discount does not apply to items in cart")
)

// Scope restricts a discount to specific products or categories.
// AllProducts true means the whole catalog qualifies and the ID lists
// are unused.
type Scope struct {
	AllProducts bool
	ProductIDs  []string
	CategoryIDs []string
}

// Discount represents a promotional rule.
type Discount struct {
	Code        string
	Description string
	Type        Type
	Value       decimal.Decimal

	// MinOrderAmount is the subtotal floor for eligibility. Zero means
	// no minimum.
	MinOrderAmount decimal.Decimal
	// MaxDiscountAmount caps the granted amount for percentage discounts.
	// Zero means no cap. Ignored for fixed discounts.
	MaxDiscountAmount decimal.Decimal

	// StartsAt and EndsAt bound the validity window (inclusive on both
	// ends). A nil bound leaves that side open.
	StartsAt *time.Time
	EndsAt   *time.Time

	// Active is the admin kill-switch, independent of the date window.
	Active bool

	// UsageLimit is the maximum number of redemptions across all users.
	// Zero means unlimited. UsageCount never exceeds a set limit.
	UsageLimit int
	UsageCount int

	AppliesTo Scope
	CreatedBy string
}

// OrderContext carries the order-side inputs for evaluating a code.
// It is ephemeral and never persisted.
type OrderContext struct {
	// Subtotal is the pre-discount sum of price x quantity. Must be >= 0.
	Subtotal decimal.Decimal
	// ProductIDs are the distinct product identifiers in the cart.
	ProductIDs []string
	// CategoryIDs are the distinct category identifiers of cart items.
	CategoryIDs []string
}

// CalculationResult is the outcome of evaluating a code against an order.
type CalculationResult struct {
	Valid bool
	// Applied is the matched discount record, set only when Valid.
	Applied *Discount
	// DiscountAmount is the currency amount actually subtracted.
	DiscountAmount decimal.Decimal
	// FinalAmount is subtotal minus DiscountAmount, never negative.
	FinalAmount decimal.Decimal
	// Reason is the eligibility sentinel when not Valid.
	Reason error
	// ErrorMessage is the user-facing failure message when not Valid.
	ErrorMessage string
}

// Repository provides lookup and mutation of discount records.
type Repository interface {
	// FindByCode returns the discount for a code, matched
	// case-insensitively. Returns ErrNotFound when no record exists.
	FindByCode(ctx context.Context, code string) (*Discount, error)
	// IncrementUsage atomically increments the usage counter, but only
	// while usage_count < usage_limit (or the limit is unset). Returns
	// ErrExhausted when the guard fails and ErrNotFound for unknown codes.
	IncrementUsage(ctx context.Context, code string) error

	List(ctx context.Context) ([]Discount, error)
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	DeleteByCode(ctx context.Context, code string) error
}
