package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/matchamart/storefront/internal/domain/auth"
)

type apiKeyInfoKey struct{}

// KeyInfoFromContext extracts the authenticated API key info, or nil.
func KeyInfoFromContext(ctx context.Context) *auth.APIKeyInfo {
	info, _ := ctx.Value(apiKeyInfoKey{}).(*auth.APIKeyInfo)
	return info
}

// RequireAPIKey authenticates requests by HMAC-hashing the provided API key
// with the server pepper, looking the hash up, and performing a
// constant-time comparison to prevent timing attacks.
func RequireAPIKey(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			sum := mac.Sum(nil)
			hash := hex.EncodeToString(sum)

			info, err := apikeys.FindByHash(r.Context(), hash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyInfoKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
