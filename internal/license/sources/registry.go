// Package sources holds one adapter per jurisdiction license search plus the
// NAIC national fallback, and the registry that routes jurisdiction codes to
// them.
package sources

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"licensecheck/internal/license"
	"licensecheck/internal/platform/metrics"
	"licensecheck/pkg/platform/circuit"
)

// Endpoints are the base URLs of each source. Tests point them at local servers.
type Endpoints struct {
	California string
	Texas      string
	Florida    string
	NAIC       string
}

// DefaultEndpoints returns the live public search URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		California: "https://cdicloud.insurance.ca.gov/cal",
		Texas:      "https://txapps.texas.gov/NASApp/tdi/TdiARManager",
		Florida:    "https://licenseesearch.fldfs.com",
		NAIC:       "https://sbs.naic.org/solar-external-lookup/",
	}
}

// Options configure every adapter the registry builds.
type Options struct {
	Endpoints Endpoints
	Timeout   time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// Consecutive transport failures before a source is reported degraded,
	// and consecutive healthy responses before it recovers. Zero uses 5 and 3.
	FailureThreshold  int
	RecoveryThreshold int

	health *sourceHealth
}

type constructor func(Options) license.Adapter

// dedicated maps jurisdictions with their own source. Everything else goes to NAIC.
var dedicated = map[string]constructor{
	"CA": func(o Options) license.Adapter { return NewCalifornia(o) },
	"FL": func(o Options) license.Adapter { return NewFlorida(o) },
	"TX": func(o Options) license.Adapter { return NewTexas(o) },
}

// Registry routes jurisdiction codes to adapters. It holds no per-lookup state.
type Registry struct {
	opts Options
}

// NewRegistry creates a registry. Zero-valued endpoints fall back to the live URLs.
func NewRegistry(opts Options) *Registry {
	defaults := DefaultEndpoints()
	if opts.Endpoints.California == "" {
		opts.Endpoints.California = defaults.California
	}
	if opts.Endpoints.Texas == "" {
		opts.Endpoints.Texas = defaults.Texas
	}
	if opts.Endpoints.Florida == "" {
		opts.Endpoints.Florida = defaults.Florida
	}
	if opts.Endpoints.NAIC == "" {
		opts.Endpoints.NAIC = defaults.NAIC
	}
	opts.health = newSourceHealth(opts.Logger, opts.Metrics,
		circuit.WithFailureThreshold(opts.FailureThreshold),
		circuit.WithSuccessThreshold(opts.RecoveryThreshold),
	)
	return &Registry{opts: opts}
}

// Resolve returns a fresh adapter for the jurisdiction. It never fails: codes
// without a dedicated source get the NAIC fallback filtered to that code.
func (r *Registry) Resolve(jurisdiction string) license.Adapter {
	code := NormalizeJurisdiction(jurisdiction)
	if build, ok := dedicated[code]; ok {
		r.logger().Debug("using dedicated source", "jurisdiction", code)
		return build(r.opts)
	}
	r.logger().Debug("no dedicated source, using NAIC fallback", "jurisdiction", code)
	return NewNAIC(r.opts, code)
}

// IsDedicated reports whether the jurisdiction has its own source.
func (r *Registry) IsDedicated(jurisdiction string) bool {
	_, ok := dedicated[NormalizeJurisdiction(jurisdiction)]
	return ok
}

// Dedicated lists the jurisdictions with their own source, sorted.
func (r *Registry) Dedicated() []string {
	codes := make([]string, 0, len(dedicated))
	for code := range dedicated {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Degraded lists the sources currently failing repeatedly, sorted. The NAIC
// fallback is reported as "NAIC".
func (r *Registry) Degraded() []string {
	return r.opts.health.degraded()
}

func (r *Registry) logger() *slog.Logger {
	if r.opts.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.opts.Logger
}

// NormalizeJurisdiction trims and upper-cases a jurisdiction code.
func NormalizeJurisdiction(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
