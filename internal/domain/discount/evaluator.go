package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// User-facing messages for each eligibility failure. The cart UI renders
// these verbatim.
var failureMessages = map[error]string{
	ErrNotFound:     "Discount code not found",
	ErrInactive:     "Discount is not active",
	ErrNotStarted:   "Discount is not within its valid date range",
	ErrExpired:      "Discount is not within its valid date range",
	ErrExhausted:    "Discount usage limit reached",
	ErrBelowMinimum: "Order does not meet minimum amount",
	ErrOutOfScope:   "Discount does not apply to items in cart",
}

// FailureMessage returns the user-facing message for an eligibility
// sentinel, or the error text for anything else.
func FailureMessage(reason error) string {
	if msg, ok := failureMessages[reason]; ok {
		return msg
	}
	return reason.Error()
}

// Evaluator validates a discount code against an order context and computes
// the discounted total. The read path has no side effects; the usage
// counter only moves through Redeem at order-commit time.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Evaluate looks up the discount for code and runs the ordered eligibility
// checks against the order context. The first failing check wins and is
// folded into an invalid result; Evaluate only returns a non-nil error for
// storage failures, so callers can distinguish "invalid code" from
// "store unavailable".
func (e *Evaluator) Evaluate(ctx context.Context, code string, order OrderContext) (*CalculationResult, error) {
	d, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidResult(ErrNotFound), nil
		}
		return nil, errors.Wrap(err, "lookup discount")
	}

	if reason := e.checkEligibility(d, order); reason != nil {
		return invalidResult(reason), nil
	}

	amount, err := Amount(d, order.Subtotal)
	if err != nil {
		return nil, err
	}

	final := order.Subtotal.Sub(amount)
	if final.IsNegative() {
		final = zero
	}

	return &CalculationResult{
		Valid:          true,
		Applied:        d,
		DiscountAmount: amount,
		FinalAmount:    final.Round(2),
	}, nil
}

// checkEligibility runs the ordered checks and returns the first failing
// sentinel, or nil when the discount applies.
func (e *Evaluator) checkEligibility(d *Discount, order OrderContext) error {
	if !d.Active {
		return ErrInactive
	}

	// Window bounds are inclusive: a discount starting and ending at the
	// same instant is valid at exactly that instant.
	now := e.now()
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return ErrNotStarted
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return ErrExpired
	}

	if d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit {
		return ErrExhausted
	}

	if d.MinOrderAmount.IsPositive() && order.Subtotal.LessThan(d.MinOrderAmount) {
		return ErrBelowMinimum
	}

	if !matchesScope(d.AppliesTo, order) {
		return ErrOutOfScope
	}

	return nil
}

// Redeem records one redemption of the code. The increment is conditional
// at the storage layer, so two checkouts racing past the same usage-limit
// read cannot push the counter over the limit; the loser gets ErrExhausted
// and should re-run Evaluate to report the new state.
func (e *Evaluator) Redeem(ctx context.Context, code string) error {
	if err := e.repo.IncrementUsage(ctx, code); err != nil {
		if errors.Is(err, ErrExhausted) || errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "increment discount usage")
	}
	return nil
}

func invalidResult(reason error) *CalculationResult {
	return &CalculationResult{
		Valid:          false,
		DiscountAmount: zero,
		FinalAmount:    zero,
		Reason:         reason,
		ErrorMessage:   FailureMessage(reason),
	}
}
