package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"rigger-connect-backend/config"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/internal/search"
	"rigger-connect-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHealth struct {
	status  map[string]string
	healthy bool
}

func (s stubHealth) Check(ctx context.Context) (map[string]string, bool) {
	return s.status, s.healthy
}

func newTestRouter(health stubHealth) http.Handler {
	hub := geolocation.NewDeviceHub()
	return NewRouter(RouterDeps{
		HealthUC:       health,
		WorkerSearchUC: new(MockWorkerSearchUC),
		JobPostingUC:   new(MockJobPostingUC),
		Geocoder:       stubGeocodeService{},
		DeviceHub:      hub,
		Sessions:       search.NewRegistry(hub, new(MockWorkerSearchUC), nil, search.RegistryOptions{}),
		Validate:       validation.New(),
		Config: &config.Config{
			FrontendURL:              "https://app.riggerconnect.test",
			SupabaseJWTSecret:        "router-test-secret",
			RateLimitWindowSeconds:   60,
			RateLimitGlobalThreshold: 1000,
			RateLimitSearchThreshold: 1000,
		},
	})
}

func TestRouter_Health(t *testing.T) {
	t.Run("Should report operational", func(t *testing.T) {
		r := newTestRouter(stubHealth{status: map[string]string{"status": "ok"}, healthy: true})
		w, env := doRequest(t, r, http.MethodGet, "/v1/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "System operational", env.Message)
		assert.NotEmpty(t, env.RequestID)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("Should return 503 when the database is down", func(t *testing.T) {
		r := newTestRouter(stubHealth{status: map[string]string{"status": "unavailable", "database": "down"}})
		w, _ := doRequest(t, r, http.MethodGet, "/v1/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(stubHealth{healthy: true})

	w, env := doRequest(t, r, http.MethodPost, "/v1/jobs", map[string]string{"title": "Rigger"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = doRequest(t, r, http.MethodGet, "/v1/employers/me/jobs", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(stubHealth{healthy: true})

	req := httptest.NewRequest(http.MethodOptions, "/v1/workers/search", nil)
	req.Header.Set("Origin", "https://app.riggerconnect.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.riggerconnect.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/workers/search", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
