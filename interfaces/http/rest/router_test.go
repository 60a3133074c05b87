package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/pkg/auth"
)

func newTestRouter(t *testing.T, enableCORS bool) http.Handler {
	t.Helper()
	validator, err := auth.NewJWTValidator("test-secret", "test-issuer")
	require.NoError(t, err)
	return NewRouter(nil, nil, nil, nil, nil, validator, enableCORS, zap.NewNop()).Setup()
}

func preflight(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPreflightWithCORSEnabled(t *testing.T) {
	rec := preflight(newTestRouter(t, true))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightWithCORSDisabled(t *testing.T) {
	rec := preflight(newTestRouter(t, false))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestRouter(t, true)
	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
