package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glowline/commerce/internal/domain/appointment"
	"github.com/glowline/commerce/internal/domain/catalog"
	"github.com/glowline/commerce/internal/domain/coupon"
	"github.com/glowline/commerce/internal/domain/order"
	"github.com/glowline/commerce/internal/domain/shipping"
)

// bind decodes the JSON request body into dst and validates it.
func (h *Handler) bind(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode request")
	}
	if err := h.validate.StructCtx(r.Context(), dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			msgs := make([]string, len(fields))
			for i, f := range fields {
				msgs[i] = fmt.Sprintf("invalid %q with value %v", f.Field(), f.Value())
			}
			return errors.New(strings.Join(msgs, ", "))
		}
		return err
	}
	return nil
}

// writeJSON encodes one response object with jx and writes it with the given
// status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(ctx).Debug("write response", zap.Error(err))
	}
}

// writeError writes the standard error body {"code": ..., "message": ...}.
func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// writeDomainError maps a domain error to its HTTP representation. Unknown
// errors are logged and reported as 500 without leaking detail.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	if status, msg, ok := mapDomainError(err); ok {
		writeError(ctx, w, status, msg)
		return
	}
	zctx.From(ctx).Error("internal error", zap.Error(err))
	writeError(ctx, w, http.StatusInternalServerError, "internal server error")
}

// mapDomainError resolves known domain errors to an HTTP status and message.
func mapDomainError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, appointment.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, shipping.ErrZoneNotFound):
		return http.StatusNotFound, err.Error(), true
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, coupon.ErrNotFound):
		return http.StatusUnprocessableEntity, "invalid coupon code", true
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrUsageLimitExceeded):
		return http.StatusUnprocessableEntity, err.Error(), true
	case errors.Is(err, appointment.ErrServiceNotFound):
		return http.StatusUnprocessableEntity, err.Error(), true
	}

	var (
		minErr      *coupon.MinimumNotMetError
		quantityErr *order.InvalidQuantityError
		missingErr  *order.ProductNotFoundError
		stockErr    *catalog.InsufficientStockError
		orderTrans  *order.InvalidTransitionError
		apptTrans   *appointment.InvalidTransitionError
		conflictErr *appointment.SlotConflictError
		slotErr     *appointment.InvalidSlotError
	)
	switch {
	case errors.As(err, &minErr),
		errors.As(err, &quantityErr),
		errors.As(err, &missingErr),
		errors.As(err, &slotErr):
		return http.StatusUnprocessableEntity, err.Error(), true
	case errors.As(err, &stockErr):
		return http.StatusConflict, err.Error(), true
	case errors.As(err, &orderTrans), errors.As(err, &apptTrans):
		return http.StatusConflict, err.Error(), true
	case errors.As(err, &conflictErr):
		return http.StatusConflict, err.Error(), true
	}
	return 0, "", false
}

// money encodes a whole-currency-unit decimal as a JSON number.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func optTime(e *jx.Encoder, field string, t *time.Time) {
	if t == nil {
		return
	}
	e.FieldStart(field)
	e.Str(t.Format(time.RFC3339))
}
