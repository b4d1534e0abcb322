package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"licensecheck/internal/check"
	"licensecheck/internal/check/scheduler"
	"licensecheck/internal/license/sources"
	"licensecheck/internal/platform/config"
	"licensecheck/internal/platform/httpserver"
	"licensecheck/internal/platform/logger"
	"licensecheck/internal/platform/metrics"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("licensecheck exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry := sources.NewRegistry(sources.Options{
		Timeout:          cfg.LookupTimeout,
		Logger:           log,
		Metrics:          m,
		FailureThreshold: cfg.SourceFailureThreshold,
	})

	deps, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	opts := []check.Option{
		check.WithLogger(log),
		check.WithMetrics(m),
		check.WithNotifier(deps.notifier),
	}
	if deps.locker != nil {
		opts = append(opts, check.WithLocker(deps.locker))
	}
	svc, err := check.New(deps.agents, deps.history, registry, opts...)
	if err != nil {
		return fmt.Errorf("build check service: %w", err)
	}

	router := newRouter(cfg, log, svc, registry, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), deps.health)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting licensecheck", "addr", cfg.Addr, "dedicated", registry.Dedicated())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.Sweep.Enabled {
		sched, err := scheduler.New(cfg.Sweep.Schedule, svc, log)
		if err != nil {
			return err
		}
		sched.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	} else {
		log.Info("sweep scheduler disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// healthFunc reports whether a backing service is reachable.
type healthFunc func(ctx context.Context) error
