package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Amount computes the monetary discount granted for the given subtotal.
// It assumes eligibility has already been checked.
func Amount(d *Discount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch d.Type {
	case TypePercentage:
		return percentageAmount(d, subtotal), nil
	case TypeFixed:
		return fixedAmount(d, subtotal), nil
	default:
		return zero, errors.Errorf("unsupported discount type: %q", d.Type)
	}
}

func percentageAmount(d *Discount, subtotal decimal.Decimal) decimal.Decimal {
	amount := subtotal.Mul(d.Value).Div(hundred)
	if d.MaxDiscountAmount.IsPositive() {
		amount = decimal.Min(amount, d.MaxDiscountAmount)
	}
	return floorAtZero(amount).Round(2)
}

// fixedAmount never discounts more than the subtotal itself, so the
// resulting final amount cannot go negative. MaxDiscountAmount is not
// meaningful here since the amount is already fixed.
func fixedAmount(d *Discount, subtotal decimal.Decimal) decimal.Decimal {
	amount := decimal.Min(d.Value, subtotal)
	return floorAtZero(amount).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}

// matchesScope reports whether at least one of the order's products or
// categories falls under the discount's restriction.
func matchesScope(s Scope, order OrderContext) bool {
	if s.AllProducts {
		return true
	}
	if intersects(order.ProductIDs, s.ProductIDs) {
		return true
	}
	return intersects(order.CategoryIDs, s.CategoryIDs)
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	for _, id := range a {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
