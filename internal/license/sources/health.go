package sources

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"licensecheck/internal/platform/metrics"
	"licensecheck/pkg/platform/circuit"
)

const naicSource = "NAIC"

// sourceHealth tracks consecutive transport failures per upstream source.
// A degraded source still gets queried; callers only use the state to tell
// operators a manual check is likely needed. All methods are nil-safe so
// adapters built outside a Registry skip tracking.
type sourceHealth struct {
	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
	opts     []circuit.Option
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func newSourceHealth(logger *slog.Logger, m *metrics.Metrics, opts ...circuit.Option) *sourceHealth {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &sourceHealth{
		breakers: make(map[string]*circuit.Breaker),
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

func (h *sourceHealth) breaker(source string) *circuit.Breaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.breakers[source]
	if !ok {
		b = circuit.New(source, h.opts...)
		h.breakers[source] = b
	}
	return b
}

func (h *sourceHealth) failure(ctx context.Context, source, reason string) {
	if h == nil {
		return
	}
	if _, change := h.breaker(source).RecordFailure(); change.Opened {
		h.metrics.SetSourceDegraded(source, true)
		h.logger.ErrorContext(ctx, "license source degraded",
			"source", source,
			"error", reason,
		)
	}
}

func (h *sourceHealth) success(ctx context.Context, source string) {
	if h == nil {
		return
	}
	if _, change := h.breaker(source).RecordSuccess(); change.Closed {
		h.metrics.SetSourceDegraded(source, false)
		h.logger.InfoContext(ctx, "license source recovered", "source", source)
	}
}

// degraded lists sources whose breaker is open, sorted.
func (h *sourceHealth) degraded() []string {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for name, b := range h.breakers {
		if b.IsOpen() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
