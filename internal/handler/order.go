package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/matchamart/storefront/internal/domain/discount"
	"github.com/matchamart/storefront/internal/domain/order"
)

// orderRequest is the body of POST /api/orders.
type orderRequest struct {
	Items        []order.OrderItem
	DiscountCode string
}

// PlaceOrder finalizes a checkout: re-evaluates the discount against the
// final cart, redeems it, and persists the order. A redeem race lost to a
// concurrent checkout maps to 409 so the client re-evaluates and shows the
// updated state.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "items":
				items, err := decodeOrderItems(d)
				req.Items = items
				return err
			case "discountCode":
				s, err := d.Str()
				req.DiscountCode = s
				return err
			default:
				return d.Skip()
			}
		})
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orderService.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Items:        req.Items,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	o := result.Order
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, o.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, o.Discount) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
		if o.DiscountCode != "" {
			e.Field("discountCode", func(e *jx.Encoder) { e.Str(o.DiscountCode) })
		}
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(item.ProductID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
					})
				}
			})
		})
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range result.Products {
					h.encodeProduct(e, &result.Products[i])
				}
			})
		})
	})
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	var (
		notFound   *order.ProductNotFoundError
		invalidQty *order.InvalidQuantityError
		rejected   *order.DiscountRejectedError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "items required")
	case errors.As(err, &invalidQty):
		writeError(w, http.StatusUnprocessableEntity, invalidQty.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusUnprocessableEntity, notFound.Error())
	case errors.As(err, &rejected):
		status := http.StatusUnprocessableEntity
		if errors.Is(rejected.Reason, discount.ErrExhausted) {
			status = http.StatusConflict
		}
		writeError(w, status, rejected.Message)
	default:
		writeError(w, http.StatusServiceUnavailable, "order service temporarily unavailable")
	}
}
