// Package check runs license checks for agents: the interactive verification
// flow, the per-agent monitoring check, and the sequential sweep over every
// monitored agent. Lookups go through the license engine; persistence and
// delivery are ports.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"licensecheck/internal/license"
	"licensecheck/internal/notify"
	"licensecheck/internal/platform/metrics"
	dErrors "licensecheck/pkg/domain-errors"
	"licensecheck/pkg/platform/sentinel"
)

const (
	sweepLockKey = "licensecheck:sweep"
	sweepLockTTL = 6 * time.Hour

	defaultHistoryLimit = 5
	maxHistoryLimit     = 100

	flowVerify  = "verify"
	flowMonitor = "monitor"
)

// Resolver hands out adapters. *sources.Registry satisfies it.
type Resolver interface {
	license.Resolver
	IsDedicated(jurisdiction string) bool
}

type Service struct {
	agents   AgentStore
	history  HistoryStore
	resolver Resolver
	notifier Notifier
	locker   Locker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLocker enables the cluster-wide sweep lock.
func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(agents AgentStore, history HistoryStore, resolver Resolver, opts ...Option) (*Service, error) {
	if agents == nil {
		return nil, fmt.Errorf("agent store is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	svc := &Service{
		agents:   agents,
		history:  history,
		resolver: resolver,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify runs the interactive verification flow for one agent.
//
// On ok the agent is marked licensed with the matched record's identifiers.
// On alert or error the license fields are left untouched; an error is never
// recorded as a lapse.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	req.AgentID = strings.TrimSpace(req.AgentID)
	if req.AgentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "agent_id is required")
	}

	agent, err := s.loadOrNew(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if req.Phone != "" {
		if phone, ok := NormalizePhone(req.Phone); ok {
			agent.Phone = phone
		} else {
			s.logger.WarnContext(ctx, "ignoring unparseable phone number", "agent_id", agent.ID)
		}
	}

	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	jurisdiction := strings.ToUpper(strings.TrimSpace(req.Jurisdiction))
	if jurisdiction == "" {
		jurisdiction = agent.Jurisdiction
	}
	result := &VerifyResult{Agent: agent}

	switch {
	case first == "" || last == "":
		result.Decision = missingInput("first and last name are required")
	case !validJurisdiction(jurisdiction):
		result.Decision = missingInput("a two-letter jurisdiction code is required")
	}
	if result.Decision.Outcome == OutcomeError {
		s.metrics.IncrementOutcome(flowVerify, string(OutcomeError))
		s.logger.InfoContext(ctx, "verification rejected", "agent_id", agent.ID, "reason", result.Decision.Reason)
		return result, nil
	}

	agent.FirstName, agent.LastName = first, last
	agent.FullName = first + " " + last
	agent.Jurisdiction = jurisdiction

	results, manualURL := s.lookup(ctx, jurisdiction, first, last)
	decision := Classify(results)
	result.Decision = decision
	now := s.now().UTC()

	record := &CheckRecord{
		ID:           uuid.New(),
		AgentID:      agent.ID,
		Jurisdiction: jurisdiction,
		Outcome:      decision.Outcome,
		CheckedAt:    now,
	}

	switch decision.Outcome {
	case OutcomeOK:
		m := decision.Match
		agent.LicenseStatus = StatusLicensed
		agent.NationalID = firstNonEmpty(m.NationalID, agent.NationalID)
		agent.LicenseNumber = firstNonEmpty(m.LicenseNumber, agent.LicenseNumber)
		agent.LicenseExpiry = firstNonEmpty(m.ExpirationDate, agent.LicenseExpiry)
		agent.Verified = true
		agent.VerifiedAt = now
		agent.LastCheckedAt = now
		record.Status = HistoryVerified
		record.Details = fmt.Sprintf("%s | License: %s | Status: %s", m.FullName, m.LicenseNumber, m.StatusText)
	case OutcomeAlert:
		record.Status = HistoryNotFound
		record.Details = decision.Reason
	default:
		record.Status = HistoryError
		record.Details = decision.Reason
		result.ManualLookupURL = manualURL
	}

	if err := s.agents.Save(ctx, agent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save agent")
	}
	if decision.Outcome == OutcomeOK {
		record.Notified = s.notify(ctx, notify.Alert{
			Kind:         notify.KindVerified,
			AgentID:      agent.ID,
			Name:         agent.FullName,
			Jurisdiction: jurisdiction,
			Phone:        agent.Phone,
			At:           now,
		})
	}
	if err := s.history.Append(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record check")
	}

	s.metrics.IncrementOutcome(flowVerify, string(decision.Outcome))
	s.logger.InfoContext(ctx, "verification complete",
		"agent_id", agent.ID,
		"jurisdiction", jurisdiction,
		"outcome", decision.Outcome,
		"reason", decision.Reason,
	)
	return result, nil
}

// CheckAgent runs one monitoring check. Store errors are returned; lookup
// failures are an OutcomeError decision.
func (s *Service) CheckAgent(ctx context.Context, agent *Agent) (Decision, error) {
	if agent == nil {
		return Decision{}, dErrors.New(dErrors.CodeBadRequest, "agent is required")
	}
	now := s.now().UTC()
	first, last := SplitName(agent.FullName)
	jurisdiction := strings.ToUpper(strings.TrimSpace(agent.Jurisdiction))

	var decision Decision
	attempted := first != "" && jurisdiction != ""
	if attempted {
		results, _ := s.lookup(ctx, jurisdiction, first, last)
		decision = Classify(results)
	} else {
		decision = missingInput("agent has no name or jurisdiction on file")
	}

	record := &CheckRecord{
		ID:           uuid.New(),
		AgentID:      agent.ID,
		Jurisdiction: jurisdiction,
		Outcome:      decision.Outcome,
		CheckedAt:    now,
	}
	switch decision.Outcome {
	case OutcomeOK:
		record.Status = HistoryActive
		record.Details = "License active"
	case OutcomeAlert:
		record.Status = HistoryInactive
		record.Details = "License not found or inactive"
	default:
		record.Status = HistoryError
		record.Details = decision.Reason
	}

	if attempted {
		agent.LastCheckedAt = now
		if err := s.agents.Save(ctx, agent); err != nil {
			return decision, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save agent")
		}
	}

	if decision.Outcome == OutcomeAlert {
		s.logger.WarnContext(ctx, "license alert",
			"agent_id", agent.ID,
			"jurisdiction", jurisdiction,
			"reason", decision.Reason,
		)
		record.Notified = s.notify(ctx, notify.Alert{
			Kind:         notify.KindLapsed,
			AgentID:      agent.ID,
			Name:         agent.FullName,
			Jurisdiction: jurisdiction,
			Phone:        agent.Phone,
			At:           now,
		})
	}
	if err := s.history.Append(ctx, record); err != nil {
		return decision, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record check")
	}

	s.metrics.IncrementOutcome(flowMonitor, string(decision.Outcome))
	return decision, nil
}

// Sweep checks every monitored agent strictly one after another. A failure
// or panic for one agent is counted as an error and the sweep moves on.
// Cancellation is honored between agents only.
func (s *Service) Sweep(ctx context.Context) (*SweepSummary, error) {
	summary := &SweepSummary{ID: uuid.New(), StartedAt: s.now().UTC()}
	logger := s.logger.With("sweep_id", summary.ID)

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to acquire sweep lock")
		}
		if !acquired {
			s.metrics.IncrementSweepSkipped()
			logger.InfoContext(ctx, "sweep skipped, lock held elsewhere")
			summary.Skipped = true
			summary.FinishedAt = s.now().UTC()
			return summary, nil
		}
		defer func() {
			// The sweep context may be done by now; the unlock must still go out.
			if err := s.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey); err != nil {
				logger.WarnContext(ctx, "failed to release sweep lock", "error", err)
			}
		}()
	}

	agents, err := s.agents.ListMonitored(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list monitored agents")
	}
	logger.InfoContext(ctx, "sweep starting", "agents", len(agents))

	for _, agent := range agents {
		if ctx.Err() != nil {
			summary.Cancelled = true
			logger.WarnContext(ctx, "sweep cancelled", "remaining", len(agents)-summary.Checked)
			break
		}
		outcome := s.checkIsolated(ctx, agent, logger)
		summary.tally(outcome)
	}

	summary.FinishedAt = s.now().UTC()
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)
	s.metrics.ObserveSweep(elapsed)
	logger.InfoContext(ctx, "sweep complete",
		"checked", summary.Checked,
		"ok", summary.OK,
		"alerts", summary.Alerts,
		"errors", summary.Errors,
		"cancelled", summary.Cancelled,
		"duration_ms", elapsed.Milliseconds(),
	)

	s.notify(context.WithoutCancel(ctx), notify.Alert{
		Kind:    notify.KindSweepSummary,
		Message: fmt.Sprintf("Agents checked: %d, alerts: %d, errors: %d.", summary.Checked, summary.Alerts, summary.Errors),
		At:      summary.FinishedAt,
	})
	return summary, nil
}

// checkIsolated runs CheckAgent and turns every failure, panics included,
// into OutcomeError.
func (s *Service) checkIsolated(ctx context.Context, agent *Agent, logger *slog.Logger) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "agent check panicked", "agent_id", agent.ID, "panic", r)
			outcome = OutcomeError
		}
	}()

	decision, err := s.CheckAgent(ctx, agent)
	if err != nil {
		logger.ErrorContext(ctx, "agent check failed", "agent_id", agent.ID, "error", err)
		return OutcomeError
	}
	return decision.Outcome
}

// History returns the newest check records of an agent.
func (s *Service) History(ctx context.Context, agentID string, limit int) ([]*CheckRecord, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "agent_id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	records, err := s.history.ListByAgent(ctx, agentID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load check history")
	}
	return records, nil
}

// Lookup runs a raw lookup for operators. Exactly one of name, NPN or license
// number is used, in that order of preference.
func (s *Service) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	jurisdiction := strings.ToUpper(strings.TrimSpace(req.Jurisdiction))
	if !validJurisdiction(jurisdiction) {
		return nil, dErrors.New(dErrors.CodeValidation, "a two-letter jurisdiction code is required")
	}

	adapter := s.resolver.Resolve(jurisdiction)
	defer adapter.Release()

	var results []license.Result
	switch {
	case strings.TrimSpace(req.LastName) != "":
		results = adapter.LookupByName(ctx, req.FirstName, req.LastName)
	case strings.TrimSpace(req.NationalID) != "":
		results = adapter.LookupByNationalID(ctx, req.NationalID)
	case strings.TrimSpace(req.LicenseNumber) != "":
		results = adapter.LookupByLicenseNumber(ctx, req.LicenseNumber)
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "last_name, npn or license_number is required")
	}

	return &LookupResult{
		Jurisdiction:    jurisdiction,
		Dedicated:       s.resolver.IsDedicated(jurisdiction),
		ManualLookupURL: adapter.ManualLookupURL(),
		Results:         results,
	}, nil
}

// lookup resolves a fresh adapter, runs the name search and releases it. A
// panic inside the adapter becomes a failure result.
func (s *Service) lookup(ctx context.Context, jurisdiction, first, last string) (results []license.Result, manualURL string) {
	adapter := s.resolver.Resolve(jurisdiction)
	defer adapter.Release()
	manualURL = adapter.ManualLookupURL()

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "license lookup panicked", "jurisdiction", jurisdiction, "panic", r)
			results = license.Failed(jurisdiction, "%s lookup error: %v", jurisdiction, r)
		}
	}()
	return adapter.LookupByName(ctx, first, last), manualURL
}

func (s *Service) loadOrNew(ctx context.Context, id string) (*Agent, error) {
	agent, err := s.agents.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Agent{ID: id, LicenseStatus: StatusUnverified}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	return agent, nil
}

// notify delivers an alert and reports whether it went out. Delivery failures
// are logged, never returned.
func (s *Service) notify(ctx context.Context, alert notify.Alert) bool {
	if s.notifier == nil {
		return false
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			"kind", alert.Kind,
			"agent_id", alert.AgentID,
			"error", err,
		)
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
