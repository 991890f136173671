package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/matchamart/storefront/internal/domain/product"
)

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct returns a single product by id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("imageUrl", func(e *jx.Encoder) { e.Str(h.imageURL(p.ImageURL)) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
	})
}
