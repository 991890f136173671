// Package handler exposes the storefront and admin HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matchamart/storefront/internal/domain/auth"
	"github.com/matchamart/storefront/internal/domain/discount"
	"github.com/matchamart/storefront/internal/domain/order"
	"github.com/matchamart/storefront/internal/domain/product"
)

// Discounts is the evaluation surface the cart endpoints need. Satisfied by
// *discount.Evaluator.
type Discounts interface {
	Evaluate(ctx context.Context, code string, order discount.OrderContext) (*discount.CalculationResult, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the storefront API, delegating business logic to the
// injected domain services and repositories.
type Handler struct {
	products     product.Repository
	discounts    Discounts
	discountRepo discount.Repository
	orderService *order.Service
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	discounts Discounts,
	discountRepo discount.Repository,
	orderService *order.Service,
) *Handler {
	return &Handler{
		products:     products,
		discounts:    discounts,
		discountRepo: discountRepo,
		orderService: orderService,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Router builds the chi router for the storefront API. Admin routes are
// guarded by the API-key middleware.
func Router(h *Handler, apikeys auth.Repository, pepper []byte) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/discounts/evaluate", h.EvaluateDiscount)
		r.Post("/orders", h.PlaceOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAPIKey(apikeys, pepper))
			r.Get("/discounts", h.ListDiscounts)
			r.Post("/discounts", h.CreateDiscount)
			r.Put("/discounts/{code}", h.UpdateDiscount)
			r.Delete("/discounts/{code}", h.DeleteDiscount)
		})
	})

	return r
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" {
		return path
	}
	return h.imageBaseURL + path
}
