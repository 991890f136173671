package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/matchamart/storefront/internal/domain/discount"
)

var hundredValue = decimal.NewFromInt(100)

// ListDiscounts returns every discount with its derived lifecycle state.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.discountRepo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "discount store temporarily unavailable")
		return
	}

	now := time.Now()
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range discounts {
			encodeDiscount(e, &discounts[i], now)
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// CreateDiscount registers a new discount rule.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDiscount(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if d.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}
	if msg, ok := validateDiscount(d); !ok {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if info := KeyInfoFromContext(r.Context()); info != nil {
		d.CreatedBy = info.Name
	}

	if err := h.discountRepo.Create(r.Context(), d); err != nil {
		writeError(w, http.StatusConflict, "discount already exists")
		return
	}

	var e jx.Encoder
	encodeDiscount(&e, d, time.Now())
	writeJSON(w, http.StatusCreated, &e)
}

// UpdateDiscount edits an existing discount identified by its code. The
// usage counter cannot be edited through this endpoint.
func (h *Handler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDiscount(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d.Code = chi.URLParam(r, "code")
	if msg, ok := validateDiscount(d); !ok {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if err := h.discountRepo.Update(r.Context(), d); err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			writeError(w, http.StatusNotFound, "discount not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "discount store temporarily unavailable")
		return
	}

	var e jx.Encoder
	encodeDiscount(&e, d, time.Now())
	writeJSON(w, http.StatusOK, &e)
}

// DeleteDiscount removes a discount permanently.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.discountRepo.DeleteByCode(r.Context(), code); err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			writeError(w, http.StatusNotFound, "discount not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "discount store temporarily unavailable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validateDiscount(d *discount.Discount) (string, bool) {
	switch d.Type {
	case discount.TypePercentage:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundredValue) {
			return "percentage value must be between 0 and 100", false
		}
	case discount.TypeFixed:
		if d.Value.IsNegative() {
			return "fixed value must not be negative", false
		}
	default:
		return "discountType must be percentage or fixed", false
	}
	if d.StartsAt != nil && d.EndsAt != nil && d.StartsAt.After(*d.EndsAt) {
		return "startDate must not be after endDate", false
	}
	if d.UsageLimit < 0 {
		return "usageLimit must not be negative", false
	}
	return "", true
}

func decodeDiscount(r *http.Request) (*discount.Discount, error) {
	d := &discount.Discount{Active: true}
	err := decodeBody(r, func(dec *jx.Decoder) error {
		return dec.Obj(func(dec *jx.Decoder, key string) error {
			var err error
			switch key {
			case "code":
				d.Code, err = dec.Str()
			case "description":
				d.Description, err = dec.Str()
			case "discountType":
				var s string
				s, err = dec.Str()
				d.Type = discount.Type(s)
			case "value":
				d.Value, err = decodeDecimal(dec)
			case "minOrderAmount":
				d.MinOrderAmount, err = decodeDecimal(dec)
			case "maxDiscountAmount":
				d.MaxDiscountAmount, err = decodeDecimal(dec)
			case "startDate":
				d.StartsAt, err = decodeTime(dec)
			case "endDate":
				d.EndsAt, err = decodeTime(dec)
			case "isActive":
				d.Active, err = dec.Bool()
			case "usageLimit":
				d.UsageLimit, err = dec.Int()
			case "appliesTo":
				err = dec.Obj(func(dec *jx.Decoder, key string) error {
					var err error
					switch key {
					case "allProducts":
						d.AppliesTo.AllProducts, err = dec.Bool()
					case "productIds":
						d.AppliesTo.ProductIDs, err = decodeStrings(dec)
					case "categoryIds":
						d.AppliesTo.CategoryIDs, err = decodeStrings(dec)
					default:
						return dec.Skip()
					}
					return err
				})
			default:
				return dec.Skip()
			}
			return err
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid request body")
	}
	return d, nil
}

func encodeDiscount(e *jx.Encoder, d *discount.Discount, now time.Time) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(d.Code) })
		e.Field("description", func(e *jx.Encoder) { e.Str(d.Description) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(d.Type)) })
		e.Field("value", func(e *jx.Encoder) { encodeDecimal(e, d.Value) })
		e.Field("minOrderAmount", func(e *jx.Encoder) { encodeDecimal(e, d.MinOrderAmount) })
		e.Field("maxDiscountAmount", func(e *jx.Encoder) { encodeDecimal(e, d.MaxDiscountAmount) })
		e.Field("startDate", func(e *jx.Encoder) { encodeTimePtr(e, d.StartsAt) })
		e.Field("endDate", func(e *jx.Encoder) { encodeTimePtr(e, d.EndsAt) })
		e.Field("isActive", func(e *jx.Encoder) { e.Bool(d.Active) })
		e.Field("usageLimit", func(e *jx.Encoder) { e.Int(d.UsageLimit) })
		e.Field("usageCount", func(e *jx.Encoder) { e.Int(d.UsageCount) })
		e.Field("state", func(e *jx.Encoder) { e.Str(string(discount.StateAt(d, now))) })
		e.Field("appliesTo", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("allProducts", func(e *jx.Encoder) { e.Bool(d.AppliesTo.AllProducts) })
				e.Field("productIds", func(e *jx.Encoder) { encodeStrings(e, d.AppliesTo.ProductIDs) })
				e.Field("categoryIds", func(e *jx.Encoder) { encodeStrings(e, d.AppliesTo.CategoryIDs) })
			})
		})
		e.Field("createdBy", func(e *jx.Encoder) { e.Str(d.CreatedBy) })
	})
}

func encodeTimePtr(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	e.Str(t.Format(time.RFC3339))
}
