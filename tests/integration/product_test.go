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
	if len(products) != 10 {
		t.Fatalf("expected 10 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var shampoo *productResponse
	for i := range products {
		if products[i].ID == "p-shampoo" {
			shampoo = &products[i]
			break
		}
	}

	if shampoo == nil {
		t.Fatal("product p-shampoo not found")
	}
	if shampoo.Name != "Argan Repair Shampoo 500ml" {
		t.Errorf("name: got %q, want %q", shampoo.Name, "Argan Repair Shampoo 500ml")
	}
	if shampoo.Price != 45000 {
		t.Errorf("price: got %v, want 45000", shampoo.Price)
	}
	if shampoo.Category != "Hair Care" {
		t.Errorf("category: got %q, want %q", shampoo.Category, "Hair Care")
	}
	if shampoo.Stock <= 0 {
		t.Errorf("stock: got %d, want > 0", shampoo.Stock)
	}
	if shampoo.Image.Thumbnail == "" {
		t.Error("image.thumbnail is empty")
	}
	if shampoo.Image.Mobile == "" {
		t.Error("image.mobile is empty")
	}
	if shampoo.Image.Tablet == "" {
		t.Error("image.tablet is empty")
	}
	if shampoo.Image.Desktop == "" {
		t.Error("image.desktop is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/p-shampoo")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "p-shampoo" {
		t.Errorf("id: got %q, want %q", product.ID, "p-shampoo")
	}
	if product.Name != "Argan Repair Shampoo 500ml" {
		t.Errorf("name: got %q, want %q", product.Name, "Argan Repair Shampoo 500ml")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/p-missing")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}
