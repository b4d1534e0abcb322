package check

import "licensecheck/internal/license"

// Outcome is the classification of one check of one agent.
type Outcome string

const (
	// OutcomeOK means an active record matched.
	OutcomeOK Outcome = "ok"
	// OutcomeAlert means the source answered but nothing active matched.
	OutcomeAlert Outcome = "alert"
	// OutcomeError means the lookup could not be completed. Never evidence of a lapse.
	OutcomeError Outcome = "error"
)

// Decision is the outcome of a check plus the record that justified it.
type Decision struct {
	Outcome Outcome
	Reason  string
	Match   *license.Result
}

// Classify maps one lookup's results to an outcome. Both flows use it.
func Classify(results []license.Result) Decision {
	if match, ok := license.Select(results); ok {
		return Decision{Outcome: OutcomeOK, Reason: "active license found", Match: &match}
	}
	if msg, failed := license.LeadingFailure(results); failed {
		return Decision{Outcome: OutcomeError, Reason: msg}
	}
	for _, r := range results {
		if r.Found {
			return Decision{Outcome: OutcomeAlert, Reason: "license found but not active"}
		}
	}
	return Decision{Outcome: OutcomeAlert, Reason: "no matching license found"}
}

// missingInput is the error decision for a check that cannot start.
func missingInput(reason string) Decision {
	return Decision{Outcome: OutcomeError, Reason: reason}
}
