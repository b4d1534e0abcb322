// Package contract holds reusable checks that every license.Adapter must pass,
// whatever source it talks to.
package contract

import (
	"context"
	"testing"

	"licensecheck/internal/license"
)

// LookupFunc runs one lookup against an adapter.
type LookupFunc func(ctx context.Context, a license.Adapter) []license.Result

// ByName returns a LookupFunc for a name search.
func ByName(first, last string) LookupFunc {
	return func(ctx context.Context, a license.Adapter) []license.Result {
		return a.LookupByName(ctx, first, last)
	}
}

// ByNationalID returns a LookupFunc for an NPN search.
func ByNationalID(id string) LookupFunc {
	return func(ctx context.Context, a license.Adapter) []license.Result {
		return a.LookupByNationalID(ctx, id)
	}
}

// ByLicenseNumber returns a LookupFunc for a license number search.
func ByLicenseNumber(number string) LookupFunc {
	return func(ctx context.Context, a license.Adapter) []license.Result {
		return a.LookupByLicenseNumber(ctx, number)
	}
}

// ContractTest defines one lookup and the result kind it must produce.
type ContractTest struct {
	Name         string
	NewAdapter   func() license.Adapter
	Lookup       LookupFunc
	ExpectedKind license.Kind
	ValidateFunc func(t *testing.T, results []license.Result)
}

// ContractSuite is a collection of contract tests for one jurisdiction.
type ContractSuite struct {
	Jurisdiction string
	Tests        []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			adapter := test.NewAdapter()
			defer adapter.Release()

			if adapter.Jurisdiction() != s.Jurisdiction {
				t.Errorf("expected jurisdiction %s, got %s", s.Jurisdiction, adapter.Jurisdiction())
			}

			results := test.Lookup(context.Background(), adapter)
			if len(results) == 0 {
				t.Fatal("lookup returned no results")
			}

			if got := results[0].Kind(); got != test.ExpectedKind {
				t.Errorf("expected kind %s, got %s (error %q)", test.ExpectedKind, got, results[0].ErrorMessage)
			}

			for i, r := range results {
				if r.Jurisdiction != s.Jurisdiction {
					t.Errorf("result %d: expected jurisdiction %s, got %s", i, s.Jurisdiction, r.Jurisdiction)
				}
				if !r.Found && r.FullName != "" {
					t.Errorf("result %d: not-found result carries a name", i)
				}
				if r.HasError() && r.Found {
					t.Errorf("result %d: failed result marked found", i)
				}
			}

			if test.ValidateFunc != nil {
				test.ValidateFunc(t, results)
			}
		})
	}
}

// ReleaseTest checks Release is idempotent and safe before any lookup.
type ReleaseTest struct {
	NewAdapter func() license.Adapter
}

// Run executes the release checks.
func (rt *ReleaseTest) Run(t *testing.T) {
	t.Run("release before any lookup", func(t *testing.T) {
		a := rt.NewAdapter()
		a.Release()
		a.Release()
	})
	t.Run("manual lookup url is set", func(t *testing.T) {
		a := rt.NewAdapter()
		defer a.Release()
		if a.ManualLookupURL() == "" {
			t.Error("manual lookup url not set")
		}
	})
}
