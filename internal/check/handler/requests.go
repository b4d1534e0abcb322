package handler

import (
	"strings"

	"licensecheck/internal/check"
	dErrors "licensecheck/pkg/domain-errors"
)

const maxFieldLength = 128

// VerifyRequest is the body of POST /v1/license/verify.
type VerifyRequest struct {
	AgentID      string `json:"agent_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Jurisdiction string `json:"jurisdiction"`
	Phone        string `json:"phone,omitempty"`
}

// Validate trims the fields and checks the agent id. Missing names or an
// invalid jurisdiction are reported by the service as an error outcome.
func (r *VerifyRequest) Validate() error {
	r.AgentID = strings.TrimSpace(r.AgentID)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Jurisdiction = strings.ToUpper(strings.TrimSpace(r.Jurisdiction))
	r.Phone = strings.TrimSpace(r.Phone)

	if r.AgentID == "" {
		return dErrors.New(dErrors.CodeValidation, "agent_id is required")
	}
	return checkLengths(r.AgentID, r.FirstName, r.LastName, r.Jurisdiction, r.Phone)
}

func (r *VerifyRequest) toDomain() check.VerifyRequest {
	return check.VerifyRequest{
		AgentID:      r.AgentID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Jurisdiction: r.Jurisdiction,
		Phone:        r.Phone,
	}
}

// LookupRequest is the body of POST /v1/license/lookup.
type LookupRequest struct {
	Jurisdiction  string `json:"jurisdiction"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	NationalID    string `json:"npn"`
	LicenseNumber string `json:"license_number"`
}

func (r *LookupRequest) Validate() error {
	r.Jurisdiction = strings.ToUpper(strings.TrimSpace(r.Jurisdiction))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)

	if r.Jurisdiction == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction is required")
	}
	if r.LastName == "" && r.NationalID == "" && r.LicenseNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "last_name, npn or license_number is required")
	}
	return checkLengths(r.Jurisdiction, r.FirstName, r.LastName, r.NationalID, r.LicenseNumber)
}

func (r *LookupRequest) toDomain() check.LookupRequest {
	return check.LookupRequest{
		Jurisdiction:  r.Jurisdiction,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		NationalID:    r.NationalID,
		LicenseNumber: r.LicenseNumber,
	}
}

func checkLengths(values ...string) error {
	for _, v := range values {
		if len(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "field exceeds maximum length")
		}
	}
	return nil
}
