package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"licensecheck/internal/check"
	dErrors "licensecheck/pkg/domain-errors"
	"licensecheck/pkg/platform/httputil"
	"licensecheck/pkg/requestcontext"
)

// Service defines the check operations exposed over HTTP.
type Service interface {
	Verify(ctx context.Context, req check.VerifyRequest) (*check.VerifyResult, error)
	Lookup(ctx context.Context, req check.LookupRequest) (*check.LookupResult, error)
	History(ctx context.Context, agentID string, limit int) ([]*check.CheckRecord, error)
	Sweep(ctx context.Context) (*check.SweepSummary, error)
}

// Jurisdictions lists the codes with a dedicated source and the sources
// currently failing repeatedly.
type Jurisdictions interface {
	Dedicated() []string
	Degraded() []string
}

// Handler wires check endpoints to the check service.
type Handler struct {
	service       Service
	jurisdictions Jurisdictions
	logger        *slog.Logger
}

func New(service Service, jurisdictions Jurisdictions, logger *slog.Logger) *Handler {
	return &Handler{
		service:       service,
		jurisdictions: jurisdictions,
		logger:        logger,
	}
}

// Register mounts the read and lookup endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/license/verify", h.HandleVerify)
	r.Post("/license/lookup", h.HandleLookup)
	r.Get("/agents/{agentID}/checks", h.HandleHistory)
	r.Get("/jurisdictions", h.HandleJurisdictions)
}

// RegisterAdmin mounts operator endpoints that trigger work.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/sweeps", h.HandleSweep)
}

// HandleVerify handles POST /license/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.toDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestID,
			"agent_id", req.AgentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification handled",
		"request_id", requestID,
		"agent_id", req.AgentID,
		"outcome", result.Decision.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromVerifyResult(result))
}

// HandleLookup handles POST /license/lookup.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LookupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Lookup(ctx, req.toDomain())
	if err != nil {
		h.logger.WarnContext(ctx, "lookup failed",
			"request_id", requestID,
			"jurisdiction", req.Jurisdiction,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "operator lookup",
		"request_id", requestID,
		"operator", requestcontext.Subject(ctx),
		"jurisdiction", result.Jurisdiction,
		"results", len(result.Results),
	)
	httputil.WriteJSON(w, http.StatusOK, fromLookupResult(result))
}

// HandleHistory handles GET /agents/{agentID}/checks?limit=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := chi.URLParam(r, "agentID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.service.History(ctx, agentID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "history lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"agent_id", agentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromHistory(agentID, records))
}

// HandleSweep handles POST /sweeps. The sweep runs synchronously and is not
// tied to the request: a dropped client does not stop it halfway.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	summary, err := h.service.Sweep(context.WithoutCancel(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "manual sweep failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if summary.Skipped {
		status = http.StatusConflict
	}
	h.logger.InfoContext(ctx, "manual sweep",
		"request_id", requestID,
		"operator", requestcontext.Subject(ctx),
		"skipped", summary.Skipped,
		"checked", summary.Checked,
	)
	httputil.WriteJSON(w, status, fromSweepSummary(summary))
}

// HandleJurisdictions handles GET /jurisdictions.
func (h *Handler) HandleJurisdictions(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, JurisdictionsResponse{
		Dedicated: h.jurisdictions.Dedicated(),
		Fallback:  "NAIC",
		Degraded:  nonNil(h.jurisdictions.Degraded()),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
