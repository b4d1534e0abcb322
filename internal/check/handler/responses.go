package handler

import (
	"time"

	"licensecheck/internal/check"
	"licensecheck/internal/license"
)

// ResultResponse is the wire form of one license record candidate.
type ResultResponse struct {
	Found           bool              `json:"found"`
	Active          bool              `json:"active"`
	FullName        string            `json:"full_name,omitempty"`
	LicenseNumber   string            `json:"license_number,omitempty"`
	NationalID      string            `json:"npn,omitempty"`
	Jurisdiction    string            `json:"jurisdiction"`
	LicenseCategory string            `json:"license_category,omitempty"`
	StatusText      string            `json:"status,omitempty"`
	ExpirationDate  string            `json:"expiration_date,omitempty"`
	IssueDate       string            `json:"issue_date,omitempty"`
	Resident        bool              `json:"resident,omitempty"`
	Appointments    []string          `json:"appointments,omitempty"`
	RawFields       map[string]string `json:"raw_fields,omitempty"`
	ErrorMessage    string            `json:"error,omitempty"`
}

func fromResult(r license.Result) ResultResponse {
	return ResultResponse{
		Found:           r.Found,
		Active:          r.Active,
		FullName:        r.FullName,
		LicenseNumber:   r.LicenseNumber,
		NationalID:      r.NationalID,
		Jurisdiction:    r.Jurisdiction,
		LicenseCategory: r.LicenseCategory,
		StatusText:      r.StatusText,
		ExpirationDate:  r.ExpirationDate,
		IssueDate:       r.IssueDate,
		Resident:        r.Resident,
		Appointments:    r.Appointments,
		RawFields:       r.RawFields,
		ErrorMessage:    r.ErrorMessage,
	}
}

// AgentResponse is the agent state after a verification.
type AgentResponse struct {
	ID            string     `json:"agent_id"`
	FullName      string     `json:"full_name"`
	Jurisdiction  string     `json:"jurisdiction"`
	LicenseStatus string     `json:"license_status"`
	NationalID    string     `json:"npn,omitempty"`
	LicenseNumber string     `json:"license_number,omitempty"`
	LicenseExpiry string     `json:"license_expiry,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

// VerifyResponse is returned by POST /v1/license/verify.
type VerifyResponse struct {
	Outcome         check.Outcome   `json:"outcome"`
	Reason          string          `json:"reason"`
	Match           *ResultResponse `json:"match,omitempty"`
	ManualLookupURL string          `json:"manual_lookup_url,omitempty"`
	Agent           AgentResponse   `json:"agent"`
}

func fromVerifyResult(res *check.VerifyResult) VerifyResponse {
	out := VerifyResponse{
		Outcome:         res.Decision.Outcome,
		Reason:          res.Decision.Reason,
		ManualLookupURL: res.ManualLookupURL,
	}
	if res.Decision.Match != nil {
		m := fromResult(*res.Decision.Match)
		out.Match = &m
	}
	if a := res.Agent; a != nil {
		out.Agent = AgentResponse{
			ID:            a.ID,
			FullName:      a.FullName,
			Jurisdiction:  a.Jurisdiction,
			LicenseStatus: a.LicenseStatus,
			NationalID:    a.NationalID,
			LicenseNumber: a.LicenseNumber,
			LicenseExpiry: a.LicenseExpiry,
		}
		if !a.VerifiedAt.IsZero() {
			t := a.VerifiedAt
			out.Agent.VerifiedAt = &t
		}
	}
	return out
}

// LookupResponse is returned by POST /v1/license/lookup.
type LookupResponse struct {
	Jurisdiction    string           `json:"jurisdiction"`
	Dedicated       bool             `json:"dedicated"`
	ManualLookupURL string           `json:"manual_lookup_url,omitempty"`
	Results         []ResultResponse `json:"results"`
}

func fromLookupResult(res *check.LookupResult) LookupResponse {
	out := LookupResponse{
		Jurisdiction:    res.Jurisdiction,
		Dedicated:       res.Dedicated,
		ManualLookupURL: res.ManualLookupURL,
		Results:         make([]ResultResponse, 0, len(res.Results)),
	}
	for _, r := range res.Results {
		out.Results = append(out.Results, fromResult(r))
	}
	return out
}

// CheckRecordResponse is one history entry.
type CheckRecordResponse struct {
	ID           string        `json:"id"`
	Jurisdiction string        `json:"jurisdiction"`
	Outcome      check.Outcome `json:"outcome"`
	Status       string        `json:"status"`
	Details      string        `json:"details"`
	Notified     bool          `json:"notified"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// HistoryResponse is returned by GET /v1/agents/{agentID}/checks.
type HistoryResponse struct {
	AgentID string                `json:"agent_id"`
	Checks  []CheckRecordResponse `json:"checks"`
}

func fromHistory(agentID string, records []*check.CheckRecord) HistoryResponse {
	out := HistoryResponse{AgentID: agentID, Checks: make([]CheckRecordResponse, 0, len(records))}
	for _, r := range records {
		out.Checks = append(out.Checks, CheckRecordResponse{
			ID:           r.ID.String(),
			Jurisdiction: r.Jurisdiction,
			Outcome:      r.Outcome,
			Status:       r.Status,
			Details:      r.Details,
			Notified:     r.Notified,
			CheckedAt:    r.CheckedAt,
		})
	}
	return out
}

// SweepResponse is returned by POST /v1/sweeps.
type SweepResponse struct {
	ID         string    `json:"sweep_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Checked    int       `json:"checked"`
	OK         int       `json:"ok"`
	Alerts     int       `json:"alerts"`
	Errors     int       `json:"errors"`
	Skipped    bool      `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
}

func fromSweepSummary(s *check.SweepSummary) SweepResponse {
	return SweepResponse{
		ID:         s.ID.String(),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Checked:    s.Checked,
		OK:         s.OK,
		Alerts:     s.Alerts,
		Errors:     s.Errors,
		Skipped:    s.Skipped,
		Cancelled:  s.Cancelled,
	}
}

// JurisdictionsResponse is returned by GET /v1/jurisdictions.
type JurisdictionsResponse struct {
	Dedicated []string `json:"dedicated"`
	Fallback  string   `json:"fallback"`
	Degraded  []string `json:"degraded"`
}
