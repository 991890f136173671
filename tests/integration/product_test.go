//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var ceremonial *productResponse
	for i := range products {
		if products[i].ID == "matcha-ceremonial-30g" {
			ceremonial = &products[i]
			break
		}
	}
	if ceremonial == nil {
		t.Fatal("product matcha-ceremonial-30g not found")
	}

	if ceremonial.Price != 34.00 {
		t.Errorf("price: got %v, want 34.00", ceremonial.Price)
	}
	if ceremonial.Category != "cat_ceremonial" {
		t.Errorf("category: got %q, want cat_ceremonial", ceremonial.Category)
	}
	if ceremonial.Name == "" {
		t.Error("name is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/chasen-80")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.ID != "chasen-80" {
		t.Errorf("id: got %q, want chasen-80", p.ID)
	}
	if p.Category != "cat_teaware" {
		t.Errorf("category: got %q, want cat_teaware", p.Category)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("error message is empty")
	}
}
