// Package license defines the source-agnostic license record and the capability
// contract every jurisdiction source implements.
//
// Domain Purity: this package contains no I/O. Adapters live in
// internal/license/sources and only hand back values defined here.
package license

import (
	"fmt"
	"strings"
)

// Kind classifies what a Result represents.
type Kind string

const (
	KindRecord   Kind = "record"
	KindNotFound Kind = "not_found"
	KindFailure  Kind = "failure"
)

// Result is one normalized license record candidate.
//
// Invariants:
//   - Found=false means only Jurisdiction and ErrorMessage carry data
//   - ErrorMessage set means the lookup failed; that is not a "not found" answer
//   - Built fresh per lookup and not mutated after it is returned
type Result struct {
	Found           bool
	Active          bool
	FullName        string
	LicenseNumber   string
	NationalID      string // NPN
	Jurisdiction    string
	LicenseCategory string
	StatusText      string
	ExpirationDate  string // source-native format
	IssueDate       string
	Resident        bool
	Appointments    []string
	RawFields       map[string]string
	ErrorMessage    string
}

var primaryCategories = []string{"life", "life & annuity", "life and annuity", "life/annuity"}

// IsPrimaryLicensed reports whether the record is active and covers life insurance.
func (r Result) IsPrimaryLicensed() bool {
	if !r.Active {
		return false
	}
	category := strings.ToLower(r.LicenseCategory)
	for _, kw := range primaryCategories {
		if strings.Contains(category, kw) {
			return true
		}
	}
	return false
}

// HasError reports whether the Result represents a failed lookup.
func (r Result) HasError() bool {
	return r.ErrorMessage != ""
}

// Kind returns the classification of this Result.
func (r Result) Kind() Kind {
	switch {
	case r.HasError():
		return KindFailure
	case r.Found:
		return KindRecord
	default:
		return KindNotFound
	}
}

// NotFound is the sentinel for "source reached, nothing matched".
func NotFound(jurisdiction string) []Result {
	return []Result{{Jurisdiction: jurisdiction}}
}

// Failed is the sentinel for a lookup that could not be completed.
func Failed(jurisdiction, format string, args ...any) []Result {
	return []Result{{Jurisdiction: jurisdiction, ErrorMessage: fmt.Sprintf(format, args...)}}
}

// Unsupported is the sentinel for a search kind the source does not offer.
func Unsupported(jurisdiction string, op Operation, manualURL string) []Result {
	msg := fmt.Sprintf("%s does not support %s lookup", jurisdiction, op)
	if manualURL != "" {
		msg += "; verify manually at " + manualURL
	}
	return []Result{{Jurisdiction: jurisdiction, ErrorMessage: msg}}
}
