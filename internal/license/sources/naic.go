package sources

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"licensecheck/internal/license"
)

// NAIC SOLAR national licensee lookup. Covers every jurisdiction but the
// listing view carries no status column, so found records are only
// "unconfirmed" evidence.
//
// Columns: NPN | Name | State | License #
const naicMinCells = 3

// NAIC is the generic fallback source, parameterized with the jurisdiction it
// answers for.
type NAIC struct {
	base
	searchURL string
}

// NewNAIC creates a fallback adapter for jurisdiction.
func NewNAIC(opts Options, jurisdiction string) *NAIC {
	b := newBase(jurisdiction, opts.Endpoints.NAIC, opts)
	b.source = naicSource
	return &NAIC{
		base:      b,
		searchURL: opts.Endpoints.NAIC,
	}
}

// LookupByName establishes a session then posts the name search, filtered to
// the adapter's jurisdiction.
func (s *NAIC) LookupByName(ctx context.Context, firstName, lastName string) []license.Result {
	return s.run(ctx, license.OpName, func(ctx context.Context) []license.Result {
		if _, err := s.sess.get(ctx, "GET", s.searchURL, nil, nil); err != nil {
			return s.failure(ctx, err)
		}

		form := url.Values{
			"firstName": {strings.TrimSpace(firstName)},
			"lastName":  {strings.TrimSpace(lastName)},
		}
		if s.jurisdiction != "" {
			form.Set("state", s.jurisdiction)
		}
		html, err := s.sess.postForm(ctx, "POST", s.searchURL, form, map[string]string{
			"Referer": s.searchURL,
		})
		if err != nil {
			return s.failure(ctx, err)
		}
		return s.parse(html)
	})
}

// LookupByNationalID is not offered by the SOLAR web form.
func (s *NAIC) LookupByNationalID(ctx context.Context, _ string) []license.Result {
	return s.run(ctx, license.OpNationalID, func(context.Context) []license.Result {
		return s.unsupported(license.OpNationalID)
	})
}

// LookupByLicenseNumber is not offered by the SOLAR web form.
func (s *NAIC) LookupByLicenseNumber(ctx context.Context, _ string) []license.Result {
	return s.run(ctx, license.OpLicenseNumber, func(context.Context) []license.Result {
		return s.unsupported(license.OpLicenseNumber)
	})
}

func (s *NAIC) parse(html string) []license.Result {
	doc, err := parseDocument(html)
	if err != nil {
		return license.Failed(s.jurisdiction, "NAIC: unreadable results page: %v", err)
	}
	table, ok := findTable(doc, "table.results")
	if !ok {
		if containsAny(html, "no results", "not found") {
			s.logger.Debug("no matching licensees")
		}
		return license.NotFound(s.jurisdiction)
	}

	results, skipped := collectRows(dataRows(table), naicMinCells, func(cells, _ *goquery.Selection) (license.Result, bool) {
		state := strings.ToUpper(cell(cells, 2))
		// The form filter is advisory; drop rows from other jurisdictions.
		if state != "" && s.jurisdiction != "" && state != s.jurisdiction {
			return license.Result{}, false
		}
		return license.Result{
			Found:         true,
			Active:        true,
			Jurisdiction:  s.jurisdiction,
			NationalID:    cell(cells, 0),
			FullName:      cell(cells, 1),
			LicenseNumber: cell(cells, 3),
			StatusText:    license.StatusUnconfirmed,
			RawFields:     map[string]string{"source": "naic_solar", "listed_state": state},
		}, true
	})
	if skipped > 0 {
		s.logger.Debug("skipped rows", "skipped", skipped)
	}
	if len(results) == 0 {
		return license.NotFound(s.jurisdiction)
	}
	return results
}
