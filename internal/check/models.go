package check

import (
	"time"

	"github.com/google/uuid"

	"licensecheck/internal/license"
)

// License status values stored on an agent.
const (
	StatusUnverified = "unverified"
	StatusLicensed   = "licensed"
)

// Agent is one monitored individual.
type Agent struct {
	ID            string
	FullName      string
	FirstName     string
	LastName      string
	Jurisdiction  string
	Phone         string // E.164, empty when unknown
	NationalID    string
	LicenseNumber string
	LicenseStatus string
	LicenseExpiry string
	Verified      bool
	VerifiedAt    time.Time
	LastCheckedAt time.Time
}

// Monitored reports whether the sweep should check this agent.
func (a *Agent) Monitored() bool {
	return a.LicenseStatus == StatusLicensed && a.FullName != "" && a.Jurisdiction != ""
}

// History statuses recorded per check.
const (
	HistoryVerified = "verified"
	HistoryNotFound = "not_found"
	HistoryActive   = "active"
	HistoryInactive = "inactive"
	HistoryError    = "error"
)

// CheckRecord is one entry of an agent's check history.
type CheckRecord struct {
	ID           uuid.UUID
	AgentID      string
	Jurisdiction string
	Outcome      Outcome
	Status       string
	Details      string
	Notified     bool
	CheckedAt    time.Time
}

// VerifyRequest is the input of the interactive verification flow.
type VerifyRequest struct {
	AgentID      string
	FirstName    string
	LastName     string
	Jurisdiction string
	Phone        string
}

// VerifyResult is what the interactive flow hands back to its caller.
type VerifyResult struct {
	Decision Decision
	Agent    *Agent
	// ManualLookupURL is where the agent can check by hand when the lookup failed.
	ManualLookupURL string
}

// SweepSummary tallies one monitoring sweep. Checked = OK + Alerts + Errors.
type SweepSummary struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Checked    int
	OK         int
	Alerts     int
	Errors     int
	// Skipped is set when another instance held the sweep lock.
	Skipped bool
	// Cancelled is set when the context ended before every agent was checked.
	Cancelled bool
}

func (s *SweepSummary) tally(o Outcome) {
	s.Checked++
	switch o {
	case OutcomeOK:
		s.OK++
	case OutcomeAlert:
		s.Alerts++
	default:
		s.Errors++
	}
}

// LookupRequest is an operator diagnostic lookup that bypasses agents.
type LookupRequest struct {
	Jurisdiction  string
	FirstName     string
	LastName      string
	NationalID    string
	LicenseNumber string
}

// LookupResult carries the raw results of a diagnostic lookup.
type LookupResult struct {
	Jurisdiction    string
	Dedicated       bool
	ManualLookupURL string
	Results         []license.Result
}
