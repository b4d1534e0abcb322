package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"licensecheck/internal/check"
	"licensecheck/internal/license"
	dErrors "licensecheck/pkg/domain-errors"
	"licensecheck/pkg/requestcontext"
	"licensecheck/pkg/testutil"
)

type stubService struct {
	verifyReq  check.VerifyRequest
	verify     *check.VerifyResult
	lookupReq  check.LookupRequest
	lookup     *check.LookupResult
	historyID  string
	historyLim int
	history    []*check.CheckRecord
	sweep      *check.SweepSummary
	sweepCtx   context.Context
	err        error
}

func (s *stubService) Verify(_ context.Context, req check.VerifyRequest) (*check.VerifyResult, error) {
	s.verifyReq = req
	return s.verify, s.err
}

func (s *stubService) Lookup(_ context.Context, req check.LookupRequest) (*check.LookupResult, error) {
	s.lookupReq = req
	return s.lookup, s.err
}

func (s *stubService) History(_ context.Context, agentID string, limit int) ([]*check.CheckRecord, error) {
	s.historyID, s.historyLim = agentID, limit
	return s.history, s.err
}

func (s *stubService) Sweep(ctx context.Context) (*check.SweepSummary, error) {
	s.sweepCtx = ctx
	return s.sweep, s.err
}

type stubJurisdictions []string

func (j stubJurisdictions) Dedicated() []string { return j }
func (stubJurisdictions) Degraded() []string    { return []string{"TX"} }

type HandlerSuite struct {
	suite.Suite
	service *stubService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{}
	h := New(s.service, stubJurisdictions{"CA", "FL", "TX"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	s.router.Route("/v1", func(r chi.Router) {
		h.Register(r)
		h.RegisterAdmin(r)
	})
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	return s.serve(testutil.NewRequestWithBody(s.T(), method, path, body))
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestVerify() {
	s.Run("returns the decision and match", func() {
		match := license.Result{Found: true, Active: true, FullName: "JANE DOE", Jurisdiction: "FL", LicenseCategory: "2-14 Life & Annuity", StatusText: "VALID"}
		s.service.verify = &check.VerifyResult{
			Decision: check.Decision{Outcome: check.OutcomeOK, Reason: "active license found", Match: &match},
			Agent:    &check.Agent{ID: "a1", FullName: "Jane Doe", Jurisdiction: "FL", LicenseStatus: check.StatusLicensed, VerifiedAt: time.Now()},
		}

		rec := s.do(http.MethodPost, "/v1/license/verify", `{"agent_id":" a1 ","first_name":"Jane","last_name":"Doe","jurisdiction":"fl"}`)

		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("a1", s.service.verifyReq.AgentID)
		s.Equal("FL", s.service.verifyReq.Jurisdiction)
		resp := testutil.DecodeJSON[VerifyResponse](s.T(), rec)
		s.Equal(check.OutcomeOK, resp.Outcome)
		s.Require().NotNil(resp.Match)
		s.Equal("VALID", resp.Match.StatusText)
		s.Equal(check.StatusLicensed, resp.Agent.LicenseStatus)
		s.NotNil(resp.Agent.VerifiedAt)
	})

	s.Run("error outcome carries the manual lookup url", func() {
		s.service.verify = &check.VerifyResult{
			Decision:        check.Decision{Outcome: check.OutcomeError, Reason: "HTTP 500 on POST"},
			Agent:           &check.Agent{ID: "a1"},
			ManualLookupURL: "https://example.test/search",
		}

		rec := s.do(http.MethodPost, "/v1/license/verify", `{"agent_id":"a1","first_name":"Jane","last_name":"Doe","jurisdiction":"CA"}`)

		s.Require().Equal(http.StatusOK, rec.Code)
		resp := testutil.DecodeJSON[VerifyResponse](s.T(), rec)
		s.Equal(check.OutcomeError, resp.Outcome)
		s.Nil(resp.Match)
		s.Equal("https://example.test/search", resp.ManualLookupURL)
	})

	s.Run("missing agent id is rejected", func() {
		rec := s.do(http.MethodPost, "/v1/license/verify", `{"first_name":"Jane"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.JSONEq(`{"error":"validation_error","error_description":"agent_id is required"}`, rec.Body.String())
	})

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/v1/license/verify", `{`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("internal errors hide details", func() {
		s.service.err = dErrors.Wrap(assert.AnError, dErrors.CodeInternal, "failed to save agent")
		defer func() { s.service.err = nil }()

		rec := s.do(http.MethodPost, "/v1/license/verify", `{"agent_id":"a1"}`)
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.JSONEq(`{"error":"internal_error"}`, rec.Body.String())
	})
}

func (s *HandlerSuite) TestLookup() {
	s.Run("returns raw results", func() {
		s.service.lookup = &check.LookupResult{
			Jurisdiction: "NV",
			Results:      license.Unsupported("NV", license.OpNationalID, ""),
		}

		rec := s.do(http.MethodPost, "/v1/license/lookup", `{"jurisdiction":"nv","npn":"17654321"}`)

		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("17654321", s.service.lookupReq.NationalID)
		resp := testutil.DecodeJSON[LookupResponse](s.T(), rec)
		s.False(resp.Dedicated)
		s.Require().Len(resp.Results, 1)
		s.Equal("NV does not support NPN lookup", resp.Results[0].ErrorMessage)
	})

	s.Run("requires a search key", func() {
		rec := s.do(http.MethodPost, "/v1/license/lookup", `{"jurisdiction":"TX","first_name":"Jane"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestHistory() {
	s.Run("passes agent and limit", func() {
		s.service.history = []*check.CheckRecord{{ID: uuid.New(), AgentID: "a1", Outcome: check.OutcomeAlert, Status: check.HistoryInactive}}

		rec := s.do(http.MethodGet, "/v1/agents/a1/checks?limit=3", "")

		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("a1", s.service.historyID)
		s.Equal(3, s.service.historyLim)
		resp := testutil.DecodeJSON[HistoryResponse](s.T(), rec)
		s.Require().Len(resp.Checks, 1)
		s.Equal(check.HistoryInactive, resp.Checks[0].Status)
	})

	s.Run("bad limit", func() {
		rec := s.do(http.MethodGet, "/v1/agents/a1/checks?limit=zero", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestSweep() {
	s.Run("returns the summary", func() {
		s.service.sweep = &check.SweepSummary{ID: uuid.New(), Checked: 3, OK: 1, Alerts: 1, Errors: 1}

		req := testutil.WithSubject(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/sweeps", ""), "ops@example.com")
		rec := s.serve(testutil.WithRequestID(req, "req-1"))

		s.Require().Equal(http.StatusOK, rec.Code)
		resp := testutil.DecodeJSON[SweepResponse](s.T(), rec)
		s.Equal(3, resp.Checked)
		s.NoError(s.service.sweepCtx.Err())
		s.Equal("ops@example.com", requestcontext.Subject(s.service.sweepCtx), "detached context keeps request values")
		s.Equal("req-1", requestcontext.RequestID(s.service.sweepCtx))
	})

	s.Run("skipped sweep is a conflict", func() {
		s.service.sweep = &check.SweepSummary{ID: uuid.New(), Skipped: true}

		rec := s.do(http.MethodPost, "/v1/sweeps", "")
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("lock backend down", func() {
		s.service.err = dErrors.New(dErrors.CodeUnavailable, "failed to acquire sweep lock")
		defer func() { s.service.err = nil }()

		rec := s.do(http.MethodPost, "/v1/sweeps", "")
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}

func (s *HandlerSuite) TestJurisdictions() {
	rec := s.do(http.MethodGet, "/v1/jurisdictions", "")

	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"dedicated":["CA","FL","TX"],"fallback":"NAIC","degraded":["TX"]}`, rec.Body.String())
}
