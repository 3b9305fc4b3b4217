package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// AdminAuth gates a subset of routes behind a constant-time comparison of
// the configured header against the configured secret, per the external
// boundary's admin-authentication contract (§4.K). It replaces the
// teacher's token-issuance auth subsystem: there is exactly one admin
// credential, set at deploy time, not a database of minted keys.
type AdminAuth struct {
	headerName string
	apiKey     string
	logger     *zap.Logger
}

// NewAdminAuth builds an AdminAuth. headerName defaults to "X-API-Key" if
// empty.
func NewAdminAuth(headerName, apiKey string, logger *zap.Logger) *AdminAuth {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	return &AdminAuth{headerName: headerName, apiKey: apiKey, logger: logger}
}

// Require wraps next with the admin check: a missing or mismatched key
// returns 401 with {"message": ...} before next is ever invoked.
func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get(a.headerName)
		if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(a.apiKey)) != 1 {
			a.logger.Warn("admin auth rejected", zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "missing or invalid admin API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
