package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensecheck/internal/check"
	"licensecheck/internal/check/store"
	"licensecheck/internal/license"
	"licensecheck/internal/platform/config"
	"licensecheck/internal/platform/token"
)

type emptyAdapter struct{ j string }

func (a emptyAdapter) Jurisdiction() string    { return a.j }
func (a emptyAdapter) ManualLookupURL() string { return "" }
func (a emptyAdapter) LookupByName(context.Context, string, string) []license.Result {
	return license.NotFound(a.j)
}
func (a emptyAdapter) LookupByNationalID(context.Context, string) []license.Result {
	return license.NotFound(a.j)
}
func (a emptyAdapter) LookupByLicenseNumber(context.Context, string) []license.Result {
	return license.NotFound(a.j)
}
func (a emptyAdapter) Release() {}

type emptyRegistry struct{}

func (emptyRegistry) Resolve(j string) license.Adapter { return emptyAdapter{j: j} }
func (emptyRegistry) IsDedicated(string) bool          { return false }
func (emptyRegistry) Dedicated() []string              { return []string{"CA", "FL", "TX"} }
func (emptyRegistry) Degraded() []string               { return nil }

func testRouter(t *testing.T, cfg config.Server, health map[string]healthFunc) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewInMemory()
	svc, err := check.New(mem, mem, emptyRegistry{}, check.WithLogger(log))
	require.NoError(t, err)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	return newRouter(cfg, log, svc, emptyRegistry{}, metrics, health)
}

func TestRouterAuth(t *testing.T) {
	cfg := config.Server{JWTSigningKey: "k", JWTIssuer: "licensecheck", JWTAudience: "licensecheck-api"}
	r := testRouter(t, cfg, nil)

	t.Run("v1 requires a bearer token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jurisdictions", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token is accepted", func(t *testing.T) {
		signed, err := token.NewService("k", "licensecheck", "licensecheck-api").Issue("ops", time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/jurisdictions", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("metrics and health stay open", func(t *testing.T) {
		for _, path := range []string{"/metrics", "/healthz"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}

func TestRouterSweepWithoutAuth(t *testing.T) {
	r := testRouter(t, config.Server{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sweeps", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"checked":0`)
}

func TestHealthReportsFailingDependency(t *testing.T) {
	r := testRouter(t, config.Server{}, map[string]healthFunc{
		"redis":    func(context.Context) error { return errors.New("connection refused") },
		"postgres": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
