package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenlodge/concierge/internal/cache"
	"github.com/alpenlodge/concierge/internal/http/handlers"
	httpmiddleware "github.com/alpenlodge/concierge/internal/http/middleware"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/internal/units"
	"github.com/alpenlodge/concierge/pkg/logging"
)

func testRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return New(cfg)
}

func stubSmoobu(t *testing.T, handler http.HandlerFunc) *smoobu.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return smoobu.NewClient("key", srv.URL, 70, 2*time.Second, cache.New(), logging.Default())
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := testRouter(t, &Config{MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	client := stubSmoobu(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"bookings": []any{}})
	})
	h := testRouter(t, &Config{
		AdminSmoobu: &handlers.AdminSmoobuHandler{Smoobu: client, Logger: logging.Default()},
		AdminToken:  "op-secret",
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/smoobu/bookings", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/smoobu/bookings", nil)
	req.Header.Set("X-Admin-Token", "op-secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAvailabilityRouteRateLimited(t *testing.T) {
	client := stubSmoobu(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"availableApartments": []int{}, "prices": map[string]any{}})
	})
	dir, err := units.NewDirectory("testdata/unit_registry.json")
	require.NoError(t, err)

	h := testRouter(t, &Config{
		AvailabilityHandler: &handlers.AvailabilityHandler{Smoobu: client, Units: dir, Logger: logging.Default()},
		RateLimiter:         httpmiddleware.NewRateLimiter(2, nil),
	})

	body := `{"arrival":"2026-02-01","departure":"2026-02-05"}`
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/smoobu/availability", strings.NewReader(body))
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestCORSPreflight(t *testing.T) {
	h := testRouter(t, &Config{CORSAllowedOrigins: []string{"https://www.alpenlodge.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/concierge", nil)
	req.Header.Set("Origin", "https://www.alpenlodge.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://www.alpenlodge.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteIs404(t *testing.T) {
	h := testRouter(t, &Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
