package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matchamart/storefront/internal/domain/discount"
	"github.com/matchamart/storefront/internal/domain/product"
)

// Sentinel errors for order validation.
var ErrEmptyItems = errors.New("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// DiscountRejectedError indicates the discount code failed an eligibility
// check at checkout time. Message is the user-facing failure reason.
type DiscountRejectedError struct {
	Code    string
	Reason  error
	Message string
}

func (e *DiscountRejectedError) Error() string {
	return fmt.Sprintf("discount %s rejected: %s", e.Code, e.Message)
}

func (e *DiscountRejectedError) Unwrap() error {
	return e.Reason
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items        []OrderItem
	DiscountCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Discounter evaluates and redeems discount codes. Satisfied by
// *discount.Evaluator.
type Discounter interface {
	Evaluate(ctx context.Context, code string, order discount.OrderContext) (*discount.CalculationResult, error)
	Redeem(ctx context.Context, code string) error
}

// Service encapsulates order placement business logic.
type Service struct {
	products  product.Repository
	discounts Discounter
	orders    Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	discounts Discounter,
	orders Repository,
) *Service {
	return &Service{
		products:  products,
		discounts: discounts,
		orders:    orders,
	}
}

// PlaceOrder validates items, fetches products in a single batch,
// re-evaluates the discount code against the final cart, persists the
// order, and then redeems the code. Redemption happens only after the
// insert succeeds so a failed write can never consume a usage slot; a
// redemption that loses the usage-limit race removes the fresh order
// again before the rejection is reported.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify every requested product was found.
	products := make([]product.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
	}

	orderCtx := BuildOrderContext(req.Items, products)

	// Re-evaluate the discount against the final cart. The exploratory
	// evaluation the cart page ran earlier does not count; only this one
	// decides whether the order gets the discount.
	discountAmount := decimal.Zero
	if req.DiscountCode != "" {
		res, err := s.discounts.Evaluate(ctx, req.DiscountCode, orderCtx)
		if err != nil {
			return nil, errors.Wrap(err, "evaluate discount")
		}
		if !res.Valid {
			return nil, &DiscountRejectedError{
				Code:    req.DiscountCode,
				Reason:  res.Reason,
				Message: res.ErrorMessage,
			}
		}
		discountAmount = res.DiscountAmount
	}

	total := orderCtx.Subtotal.Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:           uuid.New().String(),
		Items:        req.Items,
		Subtotal:     orderCtx.Subtotal.Round(2),
		Discount:     discountAmount.Round(2),
		Total:        total.Round(2),
		DiscountCode: req.DiscountCode,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Redemption comes after the insert: a failed write must leave the
	// usage counter untouched. Losing the race to the last slot here means
	// the persisted order would carry a dead code, so it is removed again.
	if req.DiscountCode != "" {
		if err := s.discounts.Redeem(ctx, req.DiscountCode); err != nil {
			if delErr := s.orders.Delete(ctx, o.ID); delErr != nil {
				return nil, errors.Wrapf(delErr, "roll back order %q after failed redemption", o.ID)
			}
			if errors.Is(err, discount.ErrExhausted) {
				return nil, &DiscountRejectedError{
					Code:    req.DiscountCode,
					Reason:  discount.ErrExhausted,
					Message: discount.FailureMessage(discount.ErrExhausted),
				}
			}
			return nil, errors.Wrap(err, "redeem discount")
		}
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}

// BuildOrderContext derives the discount evaluation inputs from cart line
// items and their resolved products: the decimal subtotal plus the distinct
// product and category identifiers. The caller re-invokes evaluation with a
// fresh context after every cart mutation.
func BuildOrderContext(items []OrderItem, products []product.Product) discount.OrderContext {
	subtotal := decimal.Zero
	seenProducts := make(map[string]struct{}, len(items))
	seenCategories := make(map[string]struct{})

	var productIDs, categoryIDs []string
	for i, item := range items {
		p := products[i]
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(p.Price.Mul(qty))

		if _, ok := seenProducts[p.ID]; !ok {
			seenProducts[p.ID] = struct{}{}
			productIDs = append(productIDs, p.ID)
		}
		if p.Category != "" {
			if _, ok := seenCategories[p.Category]; !ok {
				seenCategories[p.Category] = struct{}{}
				categoryIDs = append(categoryIDs, p.Category)
			}
		}
	}

	return discount.OrderContext{
		Subtotal:    subtotal,
		ProductIDs:  productIDs,
		CategoryIDs: categoryIDs,
	}
}
