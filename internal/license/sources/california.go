package sources

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"licensecheck/internal/license"
)

// California Department of Insurance license search. One POST per lookup, the
// answer page carries the results grid.
//
// Columns: License # | Name | Status | Type
const caMinCells = 2

// California is the simple POST-and-parse source.
type California struct {
	base
	baseURL string
}

// NewCalifornia creates a California adapter.
func NewCalifornia(opts Options) *California {
	baseURL := strings.TrimRight(opts.Endpoints.California, "/")
	return &California{
		base:    newBase("CA", baseURL+"/", opts),
		baseURL: baseURL,
	}
}

// LookupByName posts the individual name search form.
func (s *California) LookupByName(ctx context.Context, firstName, lastName string) []license.Result {
	return s.run(ctx, license.OpName, func(ctx context.Context) []license.Result {
		form := url.Values{
			"LastName":  {strings.TrimSpace(lastName)},
			"FirstName": {strings.TrimSpace(firstName)},
		}
		return s.search(ctx, s.baseURL+"/IndividualNameSearch", form)
	})
}

// LookupByNationalID is not offered by the California search.
func (s *California) LookupByNationalID(ctx context.Context, _ string) []license.Result {
	return s.run(ctx, license.OpNationalID, func(context.Context) []license.Result {
		return s.unsupported(license.OpNationalID)
	})
}

// LookupByLicenseNumber posts the license number search form.
func (s *California) LookupByLicenseNumber(ctx context.Context, licenseNumber string) []license.Result {
	return s.run(ctx, license.OpLicenseNumber, func(ctx context.Context) []license.Result {
		form := url.Values{"LicenseNumber": {strings.TrimSpace(licenseNumber)}}
		return s.search(ctx, s.baseURL+"/LicenseNumberSearch", form)
	})
}

func (s *California) search(ctx context.Context, endpoint string, form url.Values) []license.Result {
	html, err := s.sess.postForm(ctx, "POST", endpoint, form, map[string]string{
		"Referer": endpoint,
	})
	if err != nil {
		return s.failure(ctx, err)
	}
	return s.parse(html)
}

func (s *California) parse(html string) []license.Result {
	doc, err := parseDocument(html)
	if err != nil {
		return license.Failed(s.jurisdiction, "CA: unreadable results page: %v", err)
	}
	table, ok := findTable(doc, "table#gridResult", "table.table")
	if !ok {
		if containsAny(html, "no data", "no results") {
			s.logger.Debug("no matching licensees")
		}
		return license.NotFound(s.jurisdiction)
	}

	results, skipped := collectRows(caRows(table), caMinCells, func(cells, _ *goquery.Selection) (license.Result, bool) {
		status := cell(cells, 2)
		return license.Result{
			Found:           true,
			Active:          license.NormalizeStatus(status),
			Jurisdiction:    s.jurisdiction,
			LicenseNumber:   cell(cells, 0),
			FullName:        cell(cells, 1),
			StatusText:      titleCase(status),
			LicenseCategory: cell(cells, 3),
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

// caRows drops the grid's header, which CA renders with td cells.
func caRows(table *goquery.Selection) *goquery.Selection {
	return dataRows(table).FilterFunction(func(_ int, row *goquery.Selection) bool {
		return !strings.EqualFold(text(row.Find("td").First()), "License Number")
	})
}
