package license

import "context"

// Operation names one lookup kind of the capability set.
type Operation string

const (
	OpName          Operation = "name"
	OpNationalID    Operation = "NPN"
	OpLicenseNumber Operation = "license number"
)

// Adapter is the capability set every jurisdiction source implements.
//
// None of the lookup methods return a Go error: network failures, parse failures
// and "not found" are all reported as Results, and the returned slice is never
// empty. An adapter owns one network session and must be released by the
// caller that created it. Release is idempotent.
type Adapter interface {
	// Jurisdiction returns the two-letter code the adapter answers for.
	Jurisdiction() string

	// ManualLookupURL is where a human can repeat the lookup by hand.
	ManualLookupURL() string

	LookupByName(ctx context.Context, firstName, lastName string) []Result
	LookupByNationalID(ctx context.Context, nationalID string) []Result
	LookupByLicenseNumber(ctx context.Context, licenseNumber string) []Result

	Release()
}

// Resolver hands out a fresh Adapter for a jurisdiction code.
type Resolver interface {
	Resolve(jurisdiction string) Adapter
}

// Lookup runs one name lookup against a freshly resolved adapter and releases
// it on every exit path.
func Lookup(ctx context.Context, resolver Resolver, jurisdiction, firstName, lastName string) []Result {
	adapter := resolver.Resolve(jurisdiction)
	defer adapter.Release()
	return adapter.LookupByName(ctx, firstName, lastName)
}
