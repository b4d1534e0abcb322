package sources

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"licensecheck/internal/license"
)

// Texas Department of Insurance agent lookup. Search parameters travel in the
// query string of a single GET.
//
// Columns: Name | License # | Status | Type | Expiration
const txMinCells = 3

// Texas is the simple GET-and-parse source.
type Texas struct {
	base
	searchURL string
}

// NewTexas creates a Texas adapter.
func NewTexas(opts Options) *Texas {
	searchURL := opts.Endpoints.Texas
	return &Texas{
		base:      newBase("TX", searchURL, opts),
		searchURL: searchURL,
	}
}

// LookupByName searches by first and last name across valid and invalid licenses.
func (s *Texas) LookupByName(ctx context.Context, firstName, lastName string) []license.Result {
	return s.run(ctx, license.OpName, func(ctx context.Context) []license.Result {
		return s.search(ctx, url.Values{
			"SearchFirstName":     {strings.TrimSpace(firstName)},
			"SearchLastName":      {strings.TrimSpace(lastName)},
			"SearchLicenseStatus": {"Both"},
		})
	})
}

// LookupByNationalID searches by NPN.
func (s *Texas) LookupByNationalID(ctx context.Context, nationalID string) []license.Result {
	return s.run(ctx, license.OpNationalID, func(ctx context.Context) []license.Result {
		return s.search(ctx, url.Values{
			"SearchNPN":           {strings.TrimSpace(nationalID)},
			"SearchLicenseStatus": {"Both"},
		})
	})
}

// LookupByLicenseNumber searches by Texas license number.
func (s *Texas) LookupByLicenseNumber(ctx context.Context, licenseNumber string) []license.Result {
	return s.run(ctx, license.OpLicenseNumber, func(ctx context.Context) []license.Result {
		return s.search(ctx, url.Values{
			"SearchLicenseNumber": {strings.TrimSpace(licenseNumber)},
			"SearchLicenseStatus": {"Both"},
		})
	})
}

func (s *Texas) search(ctx context.Context, query url.Values) []license.Result {
	html, err := s.sess.get(ctx, "GET", s.searchURL, query, nil)
	if err != nil {
		return s.failure(ctx, err)
	}
	return s.parse(html)
}

func (s *Texas) parse(html string) []license.Result {
	doc, err := parseDocument(html)
	if err != nil {
		return license.Failed(s.jurisdiction, "TX: unreadable results page: %v", err)
	}
	table, ok := findTable(doc, "table.resultsTable")
	if !ok {
		if containsAny(html, "no records", "no results") {
			s.logger.Debug("no matching licensees")
		}
		return license.NotFound(s.jurisdiction)
	}

	results, skipped := collectRows(dataRows(table), txMinCells, func(cells, _ *goquery.Selection) (license.Result, bool) {
		name := cell(cells, 0)
		if name == "" {
			return license.Result{}, false
		}
		status := cell(cells, 2)
		return license.Result{
			Found:           true,
			Active:          license.NormalizeStatus(status),
			Jurisdiction:    s.jurisdiction,
			FullName:        name,
			LicenseNumber:   cell(cells, 1),
			StatusText:      titleCase(status),
			LicenseCategory: cell(cells, 3),
			ExpirationDate:  cell(cells, 4),
		}, true
	})
	if skipped > 0 {
		s.logger.Debug("skipped malformed rows", "skipped", skipped)
	}
	if len(results) == 0 {
		return license.NotFound(s.jurisdiction)
	}
	return results
}
