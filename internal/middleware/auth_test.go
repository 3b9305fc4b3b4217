package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuth_RejectsMissingKey(t *testing.T) {
	auth := NewAdminAuth("X-API-Key", "secret", zap.NewNop())
	req := httptest.NewRequest(http.MethodDelete, "/api/urls/abc1234", nil)
	rec := httptest.NewRecorder()

	auth.Require(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuth_RejectsWrongKey(t *testing.T) {
	auth := NewAdminAuth("X-API-Key", "secret", zap.NewNop())
	req := httptest.NewRequest(http.MethodDelete, "/api/urls/abc1234", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()

	auth.Require(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuth_AllowsCorrectKey(t *testing.T) {
	auth := NewAdminAuth("X-API-Key", "secret", zap.NewNop())
	req := httptest.NewRequest(http.MethodDelete, "/api/urls/abc1234", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()

	auth.Require(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuth_DefaultsHeaderName(t *testing.T) {
	auth := NewAdminAuth("", "secret", zap.NewNop())
	req := httptest.NewRequest(http.MethodDelete, "/api/urls/abc1234", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()

	auth.Require(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
