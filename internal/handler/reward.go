package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// rewardBalance returns the loyalty point balance for a user, computed as
// the sum over the ledger.
func (h *Handler) rewardBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userId")

	balance, err := h.rewards.Balance(ctx, userID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("userId")
		e.Str(userID)
		e.FieldStart("balance")
		e.Int64(balance)
		e.ObjEnd()
	})
}
