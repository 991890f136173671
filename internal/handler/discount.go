package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/matchamart/storefront/internal/domain/order"
)

// evaluateRequest is the body of POST /api/discounts/evaluate.
type evaluateRequest struct {
	Code  string
	Items []order.OrderItem
}

// EvaluateDiscount checks a discount code against the current cart contents
// and returns the computed amounts. This is the exploratory cart-page call:
// it never redeems the code, so repeated invocations are side-effect free.
// The cart controller re-invokes it after every add/remove/quantity change.
func (h *Handler) EvaluateDiscount(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "code":
				s, err := d.Str()
				req.Code = s
				return err
			case "items":
				items, err := decodeOrderItems(d)
				req.Items = items
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
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
			return
		}
		ids[i] = item.ProductID
	}

	fetched, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		return
	}
	byID := make(map[string]int, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = i
	}

	resolved := fetched[:0:0]
	for _, item := range req.Items {
		i, ok := byID[item.ProductID]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "product "+item.ProductID+" not found")
			return
		}
		resolved = append(resolved, fetched[i])
	}

	orderCtx := order.BuildOrderContext(req.Items, resolved)

	res, err := h.discounts.Evaluate(r.Context(), req.Code, orderCtx)
	if err != nil {
		// Lookup failed for a non-eligibility reason: surface as service
		// trouble so the UI can tell "invalid code" from "store down".
		writeError(w, http.StatusServiceUnavailable, "discount service temporarily unavailable")
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("isValid", func(e *jx.Encoder) { e.Bool(res.Valid) })
		if res.Valid {
			e.Field("code", func(e *jx.Encoder) { e.Str(res.Applied.Code) })
			e.Field("description", func(e *jx.Encoder) { e.Str(res.Applied.Description) })
			e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, orderCtx.Subtotal) })
			e.Field("discountAmount", func(e *jx.Encoder) { encodeDecimal(e, res.DiscountAmount) })
			e.Field("finalAmount", func(e *jx.Encoder) { encodeDecimal(e, res.FinalAmount) })
		} else {
			e.Field("errorMessage", func(e *jx.Encoder) { e.Str(res.ErrorMessage) })
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// decodeOrderItems reads [{"productId": ..., "quantity": ...}].
func decodeOrderItems(d *jx.Decoder) ([]order.OrderItem, error) {
	var items []order.OrderItem
	err := d.Arr(func(d *jx.Decoder) error {
		var item order.OrderItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "productId":
				s, err := d.Str()
				item.ProductID = s
				return err
			case "quantity":
				q, err := d.Int()
				item.Quantity = q
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}
