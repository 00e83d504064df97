// Package handler exposes the commerce domain over HTTP. Requests are
// decoded with encoding/json and checked with go-playground/validator;
// responses are encoded with go-faster/jx.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/glowline/commerce/internal/domain/appointment"
	"github.com/glowline/commerce/internal/domain/auth"
	"github.com/glowline/commerce/internal/domain/catalog"
	"github.com/glowline/commerce/internal/domain/coupon"
	"github.com/glowline/commerce/internal/domain/order"
	"github.com/glowline/commerce/internal/domain/promotion"
	"github.com/glowline/commerce/internal/domain/reward"
	"github.com/glowline/commerce/internal/domain/shipping"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string

	// APIKeyPepper is the HMAC pepper for hashing API keys presented on
	// admin endpoints.
	APIKeyPepper string
}

// Deps bundles the domain dependencies of the Handler.
type Deps struct {
	Orders       *order.Service
	Appointments *appointment.Allocator
	Products     catalog.Repository
	Services     appointment.ServiceRepository
	Coupons      coupon.Validator
	Promotions   *promotion.Service
	Shipping     *shipping.Calculator
	Zones        shipping.Repository
	Rewards      reward.Repository
	APIKeys      auth.Repository
}

// Handler routes HTTP requests to the domain services.
type Handler struct {
	orders       *order.Service
	appointments *appointment.Allocator
	products     catalog.Repository
	services     appointment.ServiceRepository
	coupons      coupon.Validator
	promotions   *promotion.Service
	shipping     *shipping.Calculator
	zones        shipping.Repository
	rewards      reward.Repository
	apikeys      auth.Repository

	validate     *validator.Validate
	imageBaseURL string
	pepper       []byte
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, deps Deps) *Handler {
	return &Handler{
		orders:       deps.Orders,
		appointments: deps.Appointments,
		products:     deps.Products,
		services:     deps.Services,
		coupons:      deps.Coupons,
		promotions:   deps.Promotions,
		shipping:     deps.Shipping,
		zones:        deps.Zones,
		rewards:      deps.Rewards,
		apikeys:      deps.APIKeys,
		validate:     validator.New(),
		imageBaseURL: cfg.ImageBaseURL,
		pepper:       []byte(cfg.APIKeyPepper),
	}
}

// Routes returns the API route table. Mutating admin operations (status
// transitions, appointment completion) sit behind the API key guard.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.Handle("POST /api/orders/{id}/status", h.requireAPIKey(h.updateOrderStatus))

	mux.HandleFunc("GET /api/services", h.listServices)
	mux.HandleFunc("POST /api/appointments", h.bookAppointment)
	mux.HandleFunc("GET /api/appointments/{id}", h.getAppointment)
	mux.HandleFunc("POST /api/appointments/{id}/cancel", h.cancelAppointment)
	mux.Handle("POST /api/appointments/{id}/confirm", h.requireAPIKey(h.confirmAppointment))
	mux.Handle("POST /api/appointments/{id}/complete", h.requireAPIKey(h.completeAppointment))

	mux.HandleFunc("POST /api/coupons/validate", h.validateCoupon)
	mux.HandleFunc("GET /api/promotions/active", h.activePromotions)

	mux.HandleFunc("GET /api/shipping/zones", h.listZones)
	mux.HandleFunc("GET /api/shipping/fee", h.shippingFee)

	mux.HandleFunc("GET /api/rewards/{userId}", h.rewardBalance)

	return mux
}
