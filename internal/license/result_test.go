package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrimaryLicensed(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected bool
	}{
		{"active life", Result{Active: true, LicenseCategory: "Life"}, true},
		{"active life and annuity", Result{Active: true, LicenseCategory: "LIFE & ANNUITY"}, true},
		{"active life agent", Result{Active: true, LicenseCategory: "2-14 Life Including Variable Annuity"}, true},
		{"inactive life", Result{Active: false, LicenseCategory: "Life"}, false},
		{"active health only", Result{Active: true, LicenseCategory: "Health"}, false},
		{"empty category", Result{Active: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsPrimaryLicensed())
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindRecord, Result{Found: true}.Kind())
	assert.Equal(t, KindNotFound, Result{}.Kind())
	assert.Equal(t, KindFailure, Result{ErrorMessage: "HTTP 500 on GET"}.Kind())
	assert.Equal(t, KindFailure, Result{Found: true, ErrorMessage: "x"}.Kind(), "error wins over found")
}

func TestSentinels(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		results := NotFound("FL")
		require.Len(t, results, 1)
		assert.False(t, results[0].Found)
		assert.False(t, results[0].HasError())
		assert.Equal(t, "FL", results[0].Jurisdiction)
	})

	t.Run("failed", func(t *testing.T) {
		results := Failed("TX", "HTTP %d on %s", 503, "GET")
		require.Len(t, results, 1)
		assert.False(t, results[0].Found)
		assert.Equal(t, "HTTP 503 on GET", results[0].ErrorMessage)
	})

	t.Run("unsupported names operation and manual url", func(t *testing.T) {
		results := Unsupported("CA", OpNationalID, "https://example.test/cal/")
		require.Len(t, results, 1)
		assert.False(t, results[0].Found)
		assert.Contains(t, results[0].ErrorMessage, "CA does not support NPN lookup")
		assert.Contains(t, results[0].ErrorMessage, "https://example.test/cal/")
	})

	t.Run("unsupported without manual url", func(t *testing.T) {
		results := Unsupported("NV", OpLicenseNumber, "")
		assert.Equal(t, "NV does not support license number lookup", results[0].ErrorMessage)
	})
}
