package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchamart/storefront/internal/domain/auth"
	"github.com/matchamart/storefront/internal/domain/discount"
	"github.com/matchamart/storefront/internal/domain/order"
	"github.com/matchamart/storefront/internal/domain/product"
)

// --- Mocks ---

type stubProducts struct {
	byID map[string]product.Product
	err  error
}

func (s *stubProducts) List(_ context.Context) ([]product.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]product.Product, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *stubProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubDiscountRepo struct {
	byCode  map[string]*discount.Discount
	findErr error
	created *discount.Discount
	deleted string
}

func (s *stubDiscountRepo) FindByCode(_ context.Context, code string) (*discount.Discount, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	d, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, discount.ErrNotFound
	}
	return d, nil
}

func (s *stubDiscountRepo) IncrementUsage(_ context.Context, code string) error {
	d, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return discount.ErrNotFound
	}
	if d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit {
		return discount.ErrExhausted
	}
	d.UsageCount++
	return nil
}

func (s *stubDiscountRepo) List(_ context.Context) ([]discount.Discount, error) {
	var out []discount.Discount
	for _, d := range s.byCode {
		out = append(out, *d)
	}
	return out, nil
}

func (s *stubDiscountRepo) Create(_ context.Context, d *discount.Discount) error {
	s.created = d
	return nil
}

func (s *stubDiscountRepo) Update(_ context.Context, d *discount.Discount) error {
	if _, ok := s.byCode[strings.ToUpper(d.Code)]; !ok {
		return discount.ErrNotFound
	}
	s.byCode[strings.ToUpper(d.Code)] = d
	return nil
}

func (s *stubDiscountRepo) DeleteByCode(_ context.Context, code string) error {
	if _, ok := s.byCode[strings.ToUpper(code)]; !ok {
		return discount.ErrNotFound
	}
	s.deleted = code
	delete(s.byCode, strings.ToUpper(code))
	return nil
}

type stubOrders struct {
	last *order.Order
}

func (s *stubOrders) Create(_ context.Context, o *order.Order) error {
	s.last = o
	return nil
}

func (s *stubOrders) Delete(_ context.Context, id string) error {
	if s.last != nil && s.last.ID == id {
		s.last = nil
	}
	return nil
}

type stubAPIKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (s *stubAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.byHash[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return info, nil
}

// --- Fixture ---

const testPepper = "test-pepper"

func hashKey(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *stubDiscountRepo, *stubOrders) {
	t.Helper()

	products := &stubProducts{byID: map[string]product.Product{
		"matcha-ceremonial-30g": {
			ID: "matcha-ceremonial-30g", Name: "Ceremonial Matcha",
			Price: decimal.RequireFromString("34.00"), Category: "cat_ceremonial",
		},
		"chasen-80": {
			ID: "chasen-80", Name: "Bamboo Whisk",
			Price: decimal.RequireFromString("24.00"), Category: "cat_teaware",
		},
	}}

	discounts := &stubDiscountRepo{byCode: map[string]*discount.Discount{
		"WELCOME10": {
			Code: "WELCOME10", Type: discount.TypePercentage,
			Value:  decimal.RequireFromString("10"),
			Active: true, AppliesTo: discount.Scope{AllProducts: true},
		},
		"LASTCALL": {
			Code: "LASTCALL", Type: discount.TypeFixed,
			Value:  decimal.RequireFromString("5"),
			Active: true, UsageLimit: 1, UsageCount: 1,
			AppliesTo: discount.Scope{AllProducts: true},
		},
	}}

	orders := &stubOrders{}

	evaluator := discount.NewEvaluator(discounts)
	svc := order.NewService(products, evaluator, orders)
	h := New(Config{}, products, evaluator, discounts, svc)

	apikeys := &stubAPIKeys{byHash: map[string]*auth.APIKeyInfo{
		hashKey("admin-key"): {ID: "default", KeyHash: hashKey("admin-key"), Name: "admin"},
	}}

	ts := httptest.NewServer(Router(h, apikeys, []byte(testPepper)))
	t.Cleanup(ts.Close)
	return ts, discounts, orders
}

func postJSON(t *testing.T, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// --- Tests ---

func TestEvaluateDiscount_Valid(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/discounts/evaluate", `{
		"code": "WELCOME10",
		"items": [{"productId": "matcha-ceremonial-30g", "quantity": 2}]
	}`, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isValid"])
	assert.InDelta(t, 6.8, body["discountAmount"], 0.001)
	assert.InDelta(t, 61.2, body["finalAmount"], 0.001)
}

func TestEvaluateDiscount_UnknownCode(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/discounts/evaluate", `{
		"code": "BOGUS",
		"items": [{"productId": "chasen-80", "quantity": 1}]
	}`, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isValid"])
	assert.Equal(t, "Discount code not found", body["errorMessage"])
}

func TestEvaluateDiscount_NoSideEffects(t *testing.T) {
	ts, discounts, _ := newTestServer(t)

	for range 3 {
		resp, body := postJSON(t, ts.URL+"/api/discounts/evaluate", `{
			"code": "WELCOME10",
			"items": [{"productId": "chasen-80", "quantity": 1}]
		}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["isValid"])
	}

	assert.Zero(t, discounts.byCode["WELCOME10"].UsageCount,
		"exploratory evaluation must not redeem")
}

func TestEvaluateDiscount_BadRequest(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/discounts/evaluate", `{"items": []}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrder_AppliesAndRedeems(t *testing.T) {
	ts, discounts, orders := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/orders", `{
		"items": [{"productId": "matcha-ceremonial-30g", "quantity": 1}],
		"discountCode": "WELCOME10"
	}`, nil)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.InDelta(t, 3.4, body["discount"], 0.001)
	assert.InDelta(t, 30.6, body["total"], 0.001)
	assert.Equal(t, 1, discounts.byCode["WELCOME10"].UsageCount)
	require.NotNil(t, orders.last)
	assert.Equal(t, "WELCOME10", orders.last.DiscountCode)
}

func TestPlaceOrder_ExhaustedConflict(t *testing.T) {
	ts, _, orders := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/orders", `{
		"items": [{"productId": "chasen-80", "quantity": 1}],
		"discountCode": "LASTCALL"
	}`, nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Discount usage limit reached", body["message"])
	assert.Nil(t, orders.last)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/orders", `{
		"items": [{"productId": "nope", "quantity": 1}]
	}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdmin_RequiresAPIKey(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/admin/discounts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_CreateDiscount(t *testing.T) {
	ts, discounts, _ := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/admin/discounts", `{
		"code": "AUTUMN15",
		"description": "Autumn sale",
		"discountType": "percentage",
		"value": 15,
		"maxDiscountAmount": "20",
		"isActive": true,
		"appliesTo": {"allProducts": false, "categoryIds": ["cat_teaware"]}
	}`, map[string]string{"X-API-Key": "admin-key"})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "AUTUMN15", body["code"])
	assert.Equal(t, "active", body["state"])
	require.NotNil(t, discounts.created)
	assert.Equal(t, "admin", discounts.created.CreatedBy)
	assert.True(t, decimal.RequireFromString("15").Equal(discounts.created.Value))
	assert.Equal(t, []string{"cat_teaware"}, discounts.created.AppliesTo.CategoryIDs)
}

func TestAdmin_CreateDiscountRejectsBadPercentage(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/admin/discounts", `{
		"code": "TOOGOOD",
		"discountType": "percentage",
		"value": 150
	}`, map[string]string{"X-API-Key": "admin-key"})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdmin_DeleteDiscount(t *testing.T) {
	ts, discounts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/admin/discounts/WELCOME10", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "admin-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "WELCOME10", discounts.deleted)

	// A deleted code must evaluate as not found.
	_, body := postJSON(t, ts.URL+"/api/discounts/evaluate", `{
		"code": "WELCOME10",
		"items": [{"productId": "chasen-80", "quantity": 1}]
	}`, nil)
	assert.Equal(t, false, body["isValid"])
	assert.Equal(t, "Discount code not found", body["errorMessage"])
}

func TestGetProduct(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/products/chasen-80")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Bamboo Whisk", body["name"])
	assert.InDelta(t, 24.0, body["price"], 0.001)
}

func TestGetProduct_NotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/products/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
