package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// activePromotions lists products currently discounted by a promotion,
// with their discounted prices.
func (h *Handler) activePromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	discounted, err := h.promotions.Active(ctx, time.Now())
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, d := range discounted {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(d.Product.ID)
			e.FieldStart("name")
			e.Str(d.Product.Name)
			e.FieldStart("price")
			money(e, d.Product.Price)
			e.FieldStart("discountedPrice")
			money(e, d.DiscountedPrice)
			e.FieldStart("discountPercent")
			money(e, d.DiscountPercent)
			e.FieldStart("promotionId")
			e.Str(d.PromotionID)
			e.FieldStart("promotionName")
			e.Str(d.PromotionName)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}
