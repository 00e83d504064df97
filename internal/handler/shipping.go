package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// shippingFee quotes the delivery fee for a zone and parcel weight,
// e.g. GET /api/shipping/fee?zoneId=z-central&weightKg=2.5.
func (h *Handler) shippingFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	zoneID := r.URL.Query().Get("zoneId")
	if zoneID == "" {
		writeError(ctx, w, http.StatusBadRequest, "zoneId is required")
		return
	}

	weight := decimal.Zero
	if raw := r.URL.Query().Get("weightKg"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			writeError(ctx, w, http.StatusBadRequest, "weightKg must be a non-negative number")
			return
		}
		weight = decimal.NewFromFloat(f)
	}

	quote, err := h.shipping.Calculate(ctx, zoneID, weight)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("zoneId")
		e.Str(quote.Zone.ID)
		e.FieldStart("district")
		e.Str(quote.Zone.District)
		e.FieldStart("weightKg")
		e.Num(jx.Num(quote.WeightKg.String()))
		e.FieldStart("fee")
		money(e, quote.Fee)
		e.FieldStart("estimatedDays")
		e.Int(quote.EstimatedDays)
		e.ObjEnd()
	})
}

func (h *Handler) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	zones, err := h.zones.List(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, z := range zones {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(z.ID)
			e.FieldStart("district")
			e.Str(z.District)
			e.FieldStart("baseFee")
			money(e, z.BaseFee)
			e.FieldStart("perKgFee")
			money(e, z.PerKgFee)
			e.FieldStart("estimatedDays")
			e.Int(z.EstimatedDays)
			e.FieldStart("active")
			e.Bool(z.Active)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}
