package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/glowline/commerce/internal/domain/order"
)

type orderItemReq struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type createOrderReq struct {
	UserID         string         `json:"userId" validate:"required"`
	Items          []orderItemReq `json:"items" validate:"required,min=1,dive"`
	ShippingZoneID string         `json:"shippingZoneId" validate:"required"`
	WeightKg       float64        `json:"weightKg" validate:"gte=0"`
	CouponCode     string         `json:"couponCode"`
}

type orderStatusReq struct {
	Status         string `json:"status" validate:"required"`
	Note           string `json:"note"`
	Actor          string `json:"actor" validate:"required"`
	TrackingNumber string `json:"trackingNumber"`
	Courier        string `json:"courier"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderReq
	if err := h.bind(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.orders.Create(ctx, order.CreateRequest{
		UserID:         req.UserID,
		Items:          items,
		ShippingZoneID: req.ShippingZoneID,
		WeightKg:       decimal.NewFromFloat(req.WeightKg),
		CouponCode:     req.CouponCode,
	})
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.orders.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orderStatusReq
	if err := h.bind(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	status := order.Status(req.Status)
	if !status.Valid() {
		writeError(ctx, w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	o, err := h.orders.Transition(ctx, order.TransitionRequest{
		OrderID:        r.PathValue("id"),
		NewStatus:      status,
		Note:           req.Note,
		Actor:          req.Actor,
		TrackingNumber: req.TrackingNumber,
		Courier:        req.Courier,
	})
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)
	e.FieldStart("status")
	e.Str(string(o.Status))

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("unitPrice")
		money(e, item.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	money(e, o.Subtotal)
	e.FieldStart("discount")
	money(e, o.Discount)
	e.FieldStart("shippingFee")
	money(e, o.ShippingFee)
	e.FieldStart("total")
	money(e, o.Total)

	if o.CouponCode != "" {
		e.FieldStart("couponCode")
		e.Str(o.CouponCode)
	}
	if o.ShippingZoneID != "" {
		e.FieldStart("shippingZoneId")
		e.Str(o.ShippingZoneID)
	}
	if o.TrackingNumber != "" {
		e.FieldStart("trackingNumber")
		e.Str(o.TrackingNumber)
	}
	if o.Courier != "" {
		e.FieldStart("courier")
		e.Str(o.Courier)
	}

	optTime(e, "confirmedAt", o.ConfirmedAt)
	optTime(e, "processingAt", o.ProcessingAt)
	optTime(e, "shippedAt", o.ShippedAt)
	optTime(e, "outForDeliveryAt", o.OutForDeliveryAt)
	optTime(e, "deliveredAt", o.DeliveredAt)
	optTime(e, "cancelledAt", o.CancelledAt)

	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.Format(time.RFC3339))

	if len(o.History) > 0 {
		e.FieldStart("history")
		e.ArrStart()
		for _, entry := range o.History {
			e.ObjStart()
			e.FieldStart("status")
			e.Str(string(entry.Status))
			if entry.Note != "" {
				e.FieldStart("note")
				e.Str(entry.Note)
			}
			e.FieldStart("actor")
			e.Str(entry.Actor)
			e.FieldStart("createdAt")
			e.Str(entry.CreatedAt.Format(time.RFC3339))
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}
