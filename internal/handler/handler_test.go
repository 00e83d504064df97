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
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowline/commerce/internal/domain/appointment"
	"github.com/glowline/commerce/internal/domain/auth"
	"github.com/glowline/commerce/internal/domain/catalog"
	"github.com/glowline/commerce/internal/domain/coupon"
	"github.com/glowline/commerce/internal/domain/order"
	"github.com/glowline/commerce/internal/domain/reward"
	"github.com/glowline/commerce/internal/domain/shipping"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []catalog.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, _ []string) ([]catalog.Product, error) {
	return m.products, nil
}

type mockCouponValidator struct {
	discount *coupon.Discount
	err      error
}

func (m *mockCouponValidator) Validate(_ context.Context, _ string, _ decimal.Decimal, _ string) (*coupon.Discount, error) {
	return m.discount, m.err
}

type mockZoneRepo struct {
	zones map[string]*shipping.Zone
}

func (m *mockZoneRepo) GetActive(_ context.Context, id string) (*shipping.Zone, error) {
	z, ok := m.zones[id]
	if !ok {
		return nil, shipping.ErrZoneNotFound
	}
	return z, nil
}

func (m *mockZoneRepo) List(_ context.Context) ([]shipping.Zone, error) {
	var out []shipping.Zone
	for _, z := range m.zones {
		out = append(out, *z)
	}
	return out, nil
}

type mockRewardBalance struct {
	balances map[string]int64
}

func (m *mockRewardBalance) Append(_ context.Context, _ pgx.Tx, _ reward.Entry) error { return nil }

func (m *mockRewardBalance) Balance(_ context.Context, userID string) (int64, error) {
	return m.balances[userID], nil
}

func (m *mockRewardBalance) ExistsForOrder(_ context.Context, _ pgx.Tx, _ string, _ reward.EntryType) (bool, error) {
	return false, nil
}

type mockAPIKeyRepo struct {
	info *auth.APIKeyInfo
	err  error
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, _ string) (*auth.APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// --- Helpers ---

const testPepper = "test-pepper"

func hashKey(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestHandler(deps Deps) http.Handler {
	h := New(Config{APIKeyPepper: testPepper}, deps)
	return h.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	routes := newTestHandler(Deps{Products: &mockProductRepo{
		products: []catalog.Product{
			{ID: "p1", Name: "Shampoo", Price: decimal.NewFromInt(45000), Stock: 10},
			{ID: "p2", Name: "Conditioner", Price: decimal.NewFromInt(52000), Stock: 3},
		},
	}})

	w := doJSON(t, routes, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0]["id"])
	assert.EqualValues(t, 45000, got[0]["price"])
	assert.EqualValues(t, 10, got[0]["stock"])
}

func TestGetProduct_NotFound(t *testing.T) {
	routes := newTestHandler(Deps{Products: &mockProductRepo{}})

	w := doJSON(t, routes, http.MethodGet, "/api/products/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 404, body["code"])
}

func TestValidateCoupon_OK(t *testing.T) {
	routes := newTestHandler(Deps{Coupons: &mockCouponValidator{
		discount: &coupon.Discount{
			Code:   "SAVE10",
			Amount: decimal.NewFromInt(5000),
			Coupon: coupon.Coupon{DiscountType: coupon.Percentage},
		},
	}})

	w := doJSON(t, routes, http.MethodPost, "/api/coupons/validate",
		`{"code":"SAVE10","userId":"u1","orderTotal":100000}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.EqualValues(t, 5000, body["discount"])
	assert.Equal(t, "PERCENTAGE", body["discountType"])
}

func TestValidateCoupon_Invalid(t *testing.T) {
	routes := newTestHandler(Deps{Coupons: &mockCouponValidator{err: coupon.ErrNotFound}})

	w := doJSON(t, routes, http.MethodPost, "/api/coupons/validate",
		`{"code":"NOPE","userId":"u1","orderTotal":1000}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestValidateCoupon_MissingFields(t *testing.T) {
	routes := newTestHandler(Deps{Coupons: &mockCouponValidator{}})

	w := doJSON(t, routes, http.MethodPost, "/api/coupons/validate", `{"orderTotal":1000}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShippingFee(t *testing.T) {
	zones := &mockZoneRepo{zones: map[string]*shipping.Zone{
		"z-central": {
			ID:            "z-central",
			District:      "Central",
			BaseFee:       decimal.NewFromInt(15000),
			PerKgFee:      decimal.NewFromInt(2000),
			EstimatedDays: 1,
			Active:        true,
		},
	}}
	routes := newTestHandler(Deps{
		Shipping: shipping.NewCalculator(zones),
		Zones:    zones,
	})

	w := doJSON(t, routes, http.MethodGet, "/api/shipping/fee?zoneId=z-central&weightKg=2.5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// 15000 + 2000*2.5 = 20000
	assert.EqualValues(t, 20000, body["fee"])
	assert.EqualValues(t, 1, body["estimatedDays"])
}

func TestShippingFee_BadRequest(t *testing.T) {
	routes := newTestHandler(Deps{})

	w := doJSON(t, routes, http.MethodGet, "/api/shipping/fee", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, routes, http.MethodGet, "/api/shipping/fee?zoneId=z1&weightKg=-2", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShippingFee_UnknownZone(t *testing.T) {
	zones := &mockZoneRepo{zones: map[string]*shipping.Zone{}}
	routes := newTestHandler(Deps{Shipping: shipping.NewCalculator(zones), Zones: zones})

	w := doJSON(t, routes, http.MethodGet, "/api/shipping/fee?zoneId=nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRewardBalance(t *testing.T) {
	routes := newTestHandler(Deps{Rewards: &mockRewardBalance{
		balances: map[string]int64{"u1": 240},
	}})

	w := doJSON(t, routes, http.MethodGet, "/api/rewards/u1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["userId"])
	assert.EqualValues(t, 240, body["balance"])
}

func TestUpdateOrderStatus_RequiresAPIKey(t *testing.T) {
	routes := newTestHandler(Deps{APIKeys: &mockAPIKeyRepo{err: errors.New("not found")}})

	w := doJSON(t, routes, http.MethodPost, "/api/orders/o1/status",
		`{"status":"CONFIRMED","actor":"admin"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAPIKey_ValidKey(t *testing.T) {
	const key = "secret-key"
	apikeys := &mockAPIKeyRepo{info: &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: hashKey(key),
	}}

	h := New(Config{APIKeyPepper: testPepper}, Deps{APIKeys: apikeys})

	var reached bool
	guarded := h.requireAPIKey(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("api_key", key)
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req)

	assert.True(t, reached)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAPIKey_WrongStoredHash(t *testing.T) {
	apikeys := &mockAPIKeyRepo{info: &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: hashKey("some-other-key"),
	}}

	h := New(Config{APIKeyPepper: testPepper}, Deps{APIKeys: apikeys})
	guarded := h.requireAPIKey(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("api_key", "secret-key")
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"10:30", 630, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"10:60", 0, true},
		{"1030", 0, true},
		{"aa:bb", 0, true},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", formatClock(545))
	assert.Equal(t, "00:00", formatClock(0))
}

func TestBookAppointment_BadTime(t *testing.T) {
	routes := newTestHandler(Deps{})

	w := doJSON(t, routes, http.MethodPost, "/api/appointments",
		`{"userId":"u1","serviceId":"svc-haircut","date":"2026-09-01","startTime":"25:99"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookAppointment_BadDate(t *testing.T) {
	routes := newTestHandler(Deps{})

	w := doJSON(t, routes, http.MethodPost, "/api/appointments",
		`{"userId":"u1","serviceId":"svc-haircut","date":"09/01/2026","startTime":"10:00"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	routes := newTestHandler(Deps{})

	// Missing items entirely.
	w := doJSON(t, routes, http.MethodPost, "/api/orders",
		`{"userId":"u1","shippingZoneId":"z1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Zero quantity.
	w = doJSON(t, routes, http.MethodPost, "/api/orders",
		`{"userId":"u1","shippingZoneId":"z1","items":[{"productId":"p1","quantity":0}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed JSON.
	w = doJSON(t, routes, http.MethodPost, "/api/orders", `{"userId":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{order.ErrNotFound, http.StatusNotFound},
		{order.ErrEmptyItems, http.StatusBadRequest},
		{coupon.ErrNotFound, http.StatusUnprocessableEntity},
		{coupon.ErrUsageLimitExceeded, http.StatusUnprocessableEntity},
		{&catalog.InsufficientStockError{ProductID: "p1", Requested: 5, Available: 1}, http.StatusConflict},
		{&order.InvalidTransitionError{From: order.StatusDelivered, To: order.StatusPending}, http.StatusConflict},
		{&appointment.InvalidSlotError{StartMinutes: 1410, EndMinutes: 1470}, http.StatusUnprocessableEntity},
		{shipping.ErrZoneNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		status, _, ok := mapDomainError(tt.err)
		require.True(t, ok, "%v should map", tt.err)
		assert.Equal(t, tt.status, status, "%v", tt.err)
	}

	_, _, ok := mapDomainError(errors.New("boom"))
	assert.False(t, ok)
}
