package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

type validateCouponReq struct {
	Code       string  `json:"code" validate:"required"`
	UserID     string  `json:"userId" validate:"required"`
	OrderTotal float64 `json:"orderTotal" validate:"gte=0"`
}

// validateCoupon checks a coupon against a prospective order total without
// consuming a usage slot.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateCouponReq
	if err := h.bind(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.coupons.Validate(ctx, req.Code, decimal.NewFromFloat(req.OrderTotal), req.UserID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(d.Code)
		e.FieldStart("valid")
		e.Bool(true)
		e.FieldStart("discountType")
		e.Str(string(d.Coupon.DiscountType))
		e.FieldStart("discount")
		money(e, d.Amount)
		e.ObjEnd()
	})
}
