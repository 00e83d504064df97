package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// requireAPIKey guards admin operations. The presented key (api_key header)
// is HMAC-SHA256 hashed with the configured pepper, looked up, and compared
// against the stored hash in constant time.
func (h *Handler) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key := r.Header.Get("api_key")
		if key == "" {
			writeError(ctx, w, http.StatusUnauthorized, "missing api key")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := h.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
		if err != nil {
			writeError(ctx, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(ctx, w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}
