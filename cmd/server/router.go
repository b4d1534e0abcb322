package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"licensecheck/internal/check/handler"
	"licensecheck/internal/platform/config"
	"licensecheck/internal/platform/middleware"
	"licensecheck/internal/platform/token"
	"licensecheck/pkg/platform/httputil"
)

func newRouter(
	cfg config.Server,
	log *slog.Logger,
	svc handler.Service,
	jurisdictions handler.Jurisdictions,
	metricsHandler http.Handler,
	health map[string]healthFunc,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthHandler(health))
	r.Handle("/metrics", metricsHandler)

	var validator middleware.JWTValidator
	if cfg.JWTSigningKey != "" {
		validator = token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	} else {
		log.Warn("JWT_SIGNING_KEY not set, /v1 routes are unauthenticated")
	}

	h := handler.New(svc, jurisdictions, log)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		h.Register(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(cfg.AdminTokenHash, log))
			h.RegisterAdmin(r)
		})
	})
	return r
}

func healthHandler(checks map[string]healthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
	}
}
