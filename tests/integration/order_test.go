//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

const testAPIKey = "integration-test-key"

func newOrderRequest(userID string, items ...orderItemRequest) orderRequest {
	return orderRequest{
		UserID:         userID,
		Items:          items,
		ShippingZoneID: "z-central",
		WeightKg:       1,
	}
}

func placeOrder(t *testing.T, req orderRequest) orderResponse {
	t.Helper()

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[orderResponse](t, resp)
}

func transition(t *testing.T, orderID string, req statusRequest) *http.Response {
	t.Helper()
	return doPostWithAuth(t, "/api/orders/"+orderID+"/status", req, testAPIKey)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	req := newOrderRequest("u-empty")
	req.Items = []orderItemRequest{}

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	req := newOrderRequest("u-ghost", orderItemRequest{ProductID: "p-nope", Quantity: 1})

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_TotalBreakdown(t *testing.T) {
	// 1x cuticle oil (32000), zone z-central: 15000 base + 2000/kg * 1kg.
	order := placeOrder(t, newOrderRequest("u-total",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1}))

	if order.Subtotal != 32000 {
		t.Errorf("subtotal: got %v, want 32000", order.Subtotal)
	}
	if order.ShippingFee != 17000 {
		t.Errorf("shippingFee: got %v, want 17000", order.ShippingFee)
	}
	if order.Discount != 0 {
		t.Errorf("discount: got %v, want 0", order.Discount)
	}
	if order.Total != 49000 {
		t.Errorf("total: got %v, want 49000", order.Total)
	}
	if order.Status != "PENDING" {
		t.Errorf("status: got %q, want PENDING", order.Status)
	}
	if len(order.History) != 1 || order.History[0].Status != "PENDING" {
		t.Errorf("history: got %+v, want single PENDING entry", order.History)
	}
}

func TestPlaceOrder_PercentageCoupon(t *testing.T) {
	req := newOrderRequest("u-save10",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1})
	req.CouponCode = "SAVE10"

	order := placeOrder(t, req)

	// 10% of 32000 = 3200, under the 5000 cap.
	if order.Discount != 3200 {
		t.Errorf("discount: got %v, want 3200", order.Discount)
	}
	if order.Total != 32000-3200+17000 {
		t.Errorf("total: got %v, want %v", order.Total, 32000-3200+17000)
	}
	if order.CouponCode != "SAVE10" {
		t.Errorf("couponCode: got %q, want SAVE10", order.CouponCode)
	}
}

func TestPlaceOrder_PercentageCouponCapped(t *testing.T) {
	req := newOrderRequest("u-cap",
		orderItemRequest{ProductID: "p-gift-set", Quantity: 1}) // 250000
	req.CouponCode = "SAVE10"

	order := placeOrder(t, req)

	// 10% of 250000 = 25000, capped at 5000.
	if order.Discount != 5000 {
		t.Errorf("discount: got %v, want 5000", order.Discount)
	}
}

func TestPlaceOrder_FixedCouponBelowMinimum(t *testing.T) {
	// WELCOME requires a 100000 minimum; cuticle oil alone is 32000.
	req := newOrderRequest("u-min",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1})
	req.CouponCode = "WELCOME"

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_FixedCouponPerUserLimit(t *testing.T) {
	userID := fmt.Sprintf("u-welcome-%d", time.Now().UnixNano())
	req := newOrderRequest(userID,
		orderItemRequest{ProductID: "p-face-serum", Quantity: 1}) // 145000
	req.CouponCode = "WELCOME"

	order := placeOrder(t, req)
	if order.Discount != 20000 {
		t.Errorf("discount: got %v, want 20000", order.Discount)
	}

	// WELCOME allows one redemption per user.
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("second redemption: expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	req := newOrderRequest("u-badcode",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1})
	req.CouponCode = "NONEXISTENT"

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	req := newOrderRequest("u-greedy",
		orderItemRequest{ProductID: "p-dryer-brush", Quantity: 999})

	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestGetOrder(t *testing.T) {
	placed := placeOrder(t, newOrderRequest("u-get",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 2}))

	resp := doGet(t, "/api/orders/"+placed.ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.ID != placed.ID {
		t.Errorf("id: got %q, want %q", order.ID, placed.ID)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Errorf("items: got %+v", order.Items)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/no-such-order")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestOrderStatus_NoAuth(t *testing.T) {
	placed := placeOrder(t, newOrderRequest("u-noauth",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1}))

	resp := doPost(t, "/api/orders/"+placed.ID+"/status",
		statusRequest{Status: "CONFIRMED", Actor: "admin"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestOrderStatus_InvalidKey(t *testing.T) {
	placed := placeOrder(t, newOrderRequest("u-badkey",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1}))

	resp := doPostWithAuth(t, "/api/orders/"+placed.ID+"/status",
		statusRequest{Status: "CONFIRMED", Actor: "admin"}, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestOrderLifecycle_DeliveredAwardsPoints(t *testing.T) {
	userID := fmt.Sprintf("u-life-%d", time.Now().UnixNano())
	placed := placeOrder(t, newOrderRequest(userID,
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1})) // total 49000

	steps := []statusRequest{
		{Status: "CONFIRMED", Actor: "admin"},
		{Status: "PROCESSING", Actor: "admin"},
		{Status: "SHIPPED", Actor: "admin", TrackingNumber: "TRK-123", Courier: "GlowExpress"},
		{Status: "OUT_FOR_DELIVERY", Actor: "courier"},
		{Status: "DELIVERED", Actor: "courier"},
	}

	var last orderResponse
	for _, step := range steps {
		resp := transition(t, placed.ID, step)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("transition to %s: expected 200, got %d", step.Status, resp.StatusCode)
		}
		last = decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
	}

	if last.Status != "DELIVERED" {
		t.Fatalf("status: got %q, want DELIVERED", last.Status)
	}
	if last.TrackingNumber != "TRK-123" {
		t.Errorf("trackingNumber: got %q, want TRK-123", last.TrackingNumber)
	}
	// Initial PENDING plus five transitions.
	if len(last.History) != 6 {
		t.Errorf("history length: got %d, want 6", len(last.History))
	}

	// 49000 total at 100 per point.
	resp := doGet(t, "/api/rewards/"+userID)
	defer resp.Body.Close()
	rewards := decodeJSON[rewardResponse](t, resp)
	if rewards.Balance != 490 {
		t.Errorf("reward balance: got %d, want 490", rewards.Balance)
	}
}

func TestOrderLifecycle_TerminalStateRejected(t *testing.T) {
	placed := placeOrder(t, newOrderRequest("u-term",
		orderItemRequest{ProductID: "p-cuticle-oil", Quantity: 1}))

	resp := transition(t, placed.ID, statusRequest{Status: "CANCELLED", Actor: "admin"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	resp = transition(t, placed.ID, statusRequest{Status: "CONFIRMED", Actor: "admin"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestOrderCancel_RestoresStock(t *testing.T) {
	before := getProductByID(t, "p-hair-mask")

	placed := placeOrder(t, newOrderRequest("u-cancel",
		orderItemRequest{ProductID: "p-hair-mask", Quantity: 3}))

	during := getProductByID(t, "p-hair-mask")
	if during.Stock != before.Stock-3 {
		t.Fatalf("stock after order: got %d, want %d", during.Stock, before.Stock-3)
	}

	resp := transition(t, placed.ID, statusRequest{Status: "CANCELLED", Actor: "admin"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	after := getProductByID(t, "p-hair-mask")
	if after.Stock != before.Stock {
		t.Errorf("stock after cancel: got %d, want %d", after.Stock, before.Stock)
	}
}

func getProductByID(t *testing.T, id string) productResponse {
	t.Helper()

	resp := doGet(t, "/api/products/"+id)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product %s: expected 200, got %d", id, resp.StatusCode)
	}
	return decodeJSON[productResponse](t, resp)
}

func TestPlaceOrder_ConcurrentCouponLastUse(t *testing.T) {
	// LASTCALL has a total usage limit of 1. Two simultaneous checkouts
	// from different users must admit exactly one.
	type result struct {
		status int
		err    error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			req := newOrderRequest(fmt.Sprintf("u-lastcall-%d", n),
				orderItemRequest{ProductID: "p-conditioner", Quantity: 1})
			req.CouponCode = "LASTCALL"
			status, err := postStatus("/api/orders", req)
			results <- result{status: status, err: err}
		}(i)
	}

	var created, rejected int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("order request: %v", r.err)
		}
		switch r.status {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		default:
			t.Fatalf("unexpected status %d", r.status)
		}
	}

	if created != 1 || rejected != 1 {
		t.Fatalf("got %d created and %d rejected, want exactly one of each", created, rejected)
	}
}
