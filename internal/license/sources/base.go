package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"licensecheck/internal/license"
	"licensecheck/internal/platform/metrics"
)

var tracer = otel.Tracer("licensecheck/internal/license/sources")

// base carries what every adapter shares: identity, its session, and the
// observability hooks. Markup knowledge never lives here.
type base struct {
	jurisdiction string
	source       string
	manualURL    string
	sess         *session
	logger       *slog.Logger
	metrics      *metrics.Metrics
	health       *sourceHealth
}

func newBase(jurisdiction, manualURL string, opts Options) base {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return base{
		jurisdiction: jurisdiction,
		source:       jurisdiction,
		manualURL:    manualURL,
		sess:         newSession(opts.Timeout),
		logger:       logger.With("jurisdiction", jurisdiction),
		metrics:      opts.Metrics,
		health:       opts.health,
	}
}

// Jurisdiction returns the two-letter code the adapter answers for.
func (b *base) Jurisdiction() string { return b.jurisdiction }

// ManualLookupURL returns the public search page for manual checks.
func (b *base) ManualLookupURL() string { return b.manualURL }

// Release tears down the adapter's session. Idempotent.
func (b *base) Release() { b.sess.release() }

// run wraps one lookup with a span, latency metric and a result-kind counter.
// Transport failures are reported to the source health tracker from failure;
// any other completed lookup counts as a healthy response.
func (b *base) run(ctx context.Context, op license.Operation, fn func(ctx context.Context) []license.Result) []license.Result {
	ctx, span := tracer.Start(ctx, "license.lookup",
		trace.WithAttributes(
			attribute.String("license.jurisdiction", b.jurisdiction),
			attribute.String("license.operation", string(op)),
		))
	defer span.End()

	start := time.Now()
	results := fn(ctx)
	if len(results) == 0 {
		results = license.NotFound(b.jurisdiction)
	}
	elapsed := time.Since(start)

	kind := results[0].Kind()
	b.metrics.ObserveLookup(b.jurisdiction, string(op), elapsed)
	b.metrics.IncrementLookupResult(b.jurisdiction, string(kind))
	span.SetAttributes(attribute.Int("license.results", len(results)))

	if kind == license.KindFailure {
		span.SetStatus(codes.Error, results[0].ErrorMessage)
		b.logger.WarnContext(ctx, "license lookup failed",
			"operation", op,
			"error", results[0].ErrorMessage,
			"duration_ms", elapsed.Milliseconds(),
		)
		return results
	}
	b.health.success(ctx, b.source)
	b.logger.InfoContext(ctx, "license lookup complete",
		"operation", op,
		"kind", kind,
		"results", len(results),
		"duration_ms", elapsed.Milliseconds(),
	)
	return results
}

// failure turns a transport error into the failure sentinel.
func (b *base) failure(ctx context.Context, err error) []license.Result {
	b.health.failure(ctx, b.source, err.Error())
	var se *StatusError
	if errors.As(err, &se) {
		return license.Failed(b.jurisdiction, "%s", se.Error())
	}
	return license.Failed(b.jurisdiction, "%s lookup error: %v", b.jurisdiction, err)
}

func (b *base) unsupported(op license.Operation) []license.Result {
	b.logger.Debug("unsupported lookup requested", "operation", op)
	return license.Unsupported(b.jurisdiction, op, b.manualURL)
}
