package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"licensecheck/internal/license"
)

// Florida Department of Financial Services licensee search.
//
// The search is a three step conversation on one session:
//  1. GET / to pick up the session cookies
//  2. POST / with the complete search form
//  3. GET the detail page of each candidate in the summary table
//
// Status and category only appear on the detail page: a license is valid when
// it is listed under the "Valid Licenses" panel.
const (
	flMinCells      = 2
	flMaxCandidates = 5
)

// Florida is the stateful multi-step source with a detail merge.
type Florida struct {
	base
	baseURL string
}

// NewFlorida creates a Florida adapter.
func NewFlorida(opts Options) *Florida {
	baseURL := strings.TrimRight(opts.Endpoints.Florida, "/")
	return &Florida{
		base:    newBase("FL", baseURL, opts),
		baseURL: baseURL,
	}
}

// LookupByName searches by first and last name.
func (s *Florida) LookupByName(ctx context.Context, firstName, lastName string) []license.Result {
	return s.run(ctx, license.OpName, func(ctx context.Context) []license.Result {
		return s.search(ctx, floridaForm(firstName, lastName, "", ""))
	})
}

// LookupByNationalID searches by NPN.
func (s *Florida) LookupByNationalID(ctx context.Context, nationalID string) []license.Result {
	return s.run(ctx, license.OpNationalID, func(ctx context.Context) []license.Result {
		return s.search(ctx, floridaForm("", "", "", nationalID))
	})
}

// LookupByLicenseNumber searches by Florida license number.
func (s *Florida) LookupByLicenseNumber(ctx context.Context, licenseNumber string) []license.Result {
	return s.run(ctx, license.OpLicenseNumber, func(ctx context.Context) []license.Result {
		return s.search(ctx, floridaForm("", "", licenseNumber, ""))
	})
}

// floridaForm builds the search payload. The site rejects posts that miss any
// of its fields, so every key is sent even when empty.
func floridaForm(firstName, lastName, licenseNumber, npn string) url.Values {
	return url.Values{
		"IndividualFNameFilter":                     {strings.TrimSpace(firstName)},
		"IndividualLNameFilter":                     {strings.TrimSpace(lastName)},
		"IndividualMNameFilter":                     {""},
		"EmailAddressBeginContainFilter":            {"1"},
		"EmailFilter":                               {""},
		"FirmNameBeginContainFilter":                {"1"},
		"FirmNameFilter":                            {""},
		"ResidentStatusFilter":                      {""},
		"FLLicenseNoFilter":                         {strings.TrimSpace(licenseNumber)},
		"NPNNoFilter":                               {strings.TrimSpace(npn)},
		"LicenseStatusFilter":                       {"1"},
		"LicenseCategoryFilter":                     {""},
		"LicenseIssueDateFromFilter":                {""},
		"LicenseIssueDateToFilter":                  {""},
		"OnlyLicWithNoQuApptFilter":                 {"false"},
		"BusinessStateFilter":                       {""},
		"BusinessCityFilter":                        {""},
		"BusinessCountyFilter":                      {""},
		"BusinessZipFilter":                         {""},
		"CEDueDtFromFilter":                         {""},
		"CEDueDtToFilter":                           {""},
		"CEHrsNotMetFilter":                         {"false"},
		"AppointingEntityTYCLFilter":                {""},
		"AppointingEntityStatusFilter":              {""},
		"AppointingEntityStatusDateFromFilter":      {""},
		"AppointingEntityStatusDateToFilter":        {""},
		"LicenseeSearchInfo.PagingInfo.SortBy":      {"Name"},
		"LicenseeSearchInfo.PagingInfo.SortDesc":    {"False"},
		"LicenseeSearchInfo.PagingInfo.CurrentPage": {"1"},
		"AppointingEntityIdFilter":                  {""},
		"AppointingEntityDisplayName":               {""},
		"TabLLValue":                                {"0"},
		"TabCEValue":                                {"0"},
		"TabAppValue":                               {""},
		"hdnLApptEntitySearchListUrl":               {"/Home/GetAppointingEntityListForSearch"},
		"hdnLicenseeSearchListUrl":                  {"/Home/GetLicenseeSearchListPartialView"},
	}
}

func (s *Florida) search(ctx context.Context, form url.Values) []license.Result {
	if _, err := s.sess.get(ctx, "GET", s.baseURL, nil, nil); err != nil {
		return s.failure(ctx, err)
	}

	html, err := s.sess.postForm(ctx, "POST", s.baseURL+"/", form, map[string]string{
		"Referer": s.baseURL,
	})
	if err != nil {
		return s.failure(ctx, err)
	}

	candidates := s.parseSummary(html)
	if len(candidates) == 0 {
		return license.NotFound(s.jurisdiction)
	}

	results := make([]license.Result, 0, len(candidates))
	failed := 0
	var lastErr error
	for _, c := range candidates {
		detail, err := s.fetchDetail(ctx, c.detailPath)
		if err != nil {
			failed++
			lastErr = err
			s.logger.WarnContext(ctx, "detail fetch failed", "licensee", c.fullName, "error", err)
		}
		results = append(results, mergeFloridaRecord(s.jurisdiction, c, detail, err))
	}
	// Without any detail page there is no status at all; report the lookup as
	// failed rather than as a set of inactive licensees.
	if failed == len(candidates) {
		return s.failure(ctx, fmt.Errorf("all %d detail pages failed: %w", failed, lastErr))
	}
	// A candidate whose detail page failed has unknown status. Unless another
	// candidate is confirmed active, the lookup cannot tell a lapse from an
	// outage.
	if failed > 0 && !anyActive(results) {
		return s.failure(ctx, fmt.Errorf("%d of %d detail pages failed: %w", failed, len(candidates), lastErr))
	}
	return results
}

func anyActive(results []license.Result) bool {
	for _, r := range results {
		if r.Active {
			return true
		}
	}
	return false
}

// flSummary is one row of the search results table.
type flSummary struct {
	fullName      string
	licenseNumber string
	detailPath    string
}

func (s *Florida) parseSummary(html string) []flSummary {
	doc, err := parseDocument(html)
	if err != nil {
		s.logger.Warn("unreadable results page", "error", err)
		return nil
	}
	table, ok := findTable(doc, "table.table")
	if !ok {
		if containsAny(html, "no licensee", "no results") {
			s.logger.Debug("no matching licensees")
		}
		return nil
	}

	summaries, skipped := collectRows(table.Find("tbody tr"), flMinCells, func(cells, _ *goquery.Selection) (flSummary, bool) {
		link := cells.Eq(0).Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return flSummary{}, false
		}
		return flSummary{
			fullName:      text(link),
			licenseNumber: cell(cells, 1),
			detailPath:    href,
		}, true
	})
	if skipped > 0 {
		s.logger.Debug("skipped malformed rows", "skipped", skipped)
	}
	if len(summaries) > flMaxCandidates {
		summaries = summaries[:flMaxCandidates]
	}
	return summaries
}

// flLicense is one row of a Valid/Invalid Licenses panel.
type flLicense struct {
	category  string
	issueDate string
	status    string
}

// flDetail is what a licensee detail page contributes to the record.
type flDetail struct {
	fields       map[string]string
	licenses     []flLicense
	appointments []string
	expiration   string
}

func (s *Florida) fetchDetail(ctx context.Context, detailPath string) (flDetail, error) {
	detailURL, err := s.resolve(detailPath)
	if err != nil {
		return flDetail{}, err
	}
	html, err := s.sess.get(ctx, "detail", detailURL, nil, map[string]string{
		"Referer": s.baseURL + "/",
	})
	if err != nil {
		return flDetail{}, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return flDetail{}, fmt.Errorf("parse detail page: %w", err)
	}
	return parseFloridaDetail(doc), nil
}

func (s *Florida) resolve(detailPath string) (string, error) {
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(detailPath)
	if err != nil {
		return "", fmt.Errorf("parse detail path %q: %w", detailPath, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// parseFloridaDetail reads the detail page layout:
//   - div.form-group blocks holding a label and a sibling value div
//   - div.panel blocks whose heading names the table below it:
//     "Valid Licenses", "Invalid Licenses", "Active Appointments", ...
func parseFloridaDetail(doc *goquery.Document) flDetail {
	detail := flDetail{fields: map[string]string{}}

	doc.Find("div.form-group").Each(func(_ int, fg *goquery.Selection) {
		label := fg.Find("label").First()
		if label.Length() == 0 {
			return
		}
		value := text(label.Next())
		if value == "" {
			return
		}
		detail.fields[fieldKey(text(label))] = value
	})

	doc.Find("div.panel").Each(func(_ int, panel *goquery.Selection) {
		heading := strings.ToLower(text(panel.Find("div.panel-heading").First()))
		if heading == "" {
			return
		}
		rows := panel.Find("table tbody tr")

		switch {
		// "invalid license" contains "valid license", so it is tested first.
		case strings.Contains(heading, "invalid license"):
			detail.licenses = append(detail.licenses, panelLicenses(rows, "INVALID")...)
		case strings.Contains(heading, "valid license"):
			detail.licenses = append(detail.licenses, panelLicenses(rows, "VALID")...)
		case strings.Contains(heading, "appointment"):
			active := !strings.Contains(heading, "inactive")
			rows.Each(func(_ int, row *goquery.Selection) {
				cells := row.Find("td")
				if cells.Length() == 0 {
					return
				}
				if active {
					if company := cell(cells, 0); company != "" {
						detail.appointments = append(detail.appointments, company)
					}
				}
				// Company Name | Issue Date | Exp Date | Status Date
				if detail.expiration == "" {
					detail.expiration = cell(cells, 2)
				}
			})
		}
	})
	return detail
}

func panelLicenses(rows *goquery.Selection, status string) []flLicense {
	var out []flLicense
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		out = append(out, flLicense{
			category:  cell(cells, 0),
			issueDate: cell(cells, 1),
			status:    status,
		})
	})
	return out
}

// fieldKey turns "NPN #:" into "npn_num".
func fieldKey(label string) string {
	key := strings.ToLower(strings.TrimRight(strings.TrimSpace(label), ":"))
	key = strings.ReplaceAll(key, "#", "num")
	return strings.Join(strings.Fields(key), "_")
}

// chooseLicense prefers a valid life license, then a valid health license,
// then any valid license, then the first invalid one.
func chooseLicense(licenses []flLicense) (flLicense, bool) {
	for _, kw := range []string{"life", "health"} {
		for _, l := range licenses {
			if l.status == "VALID" && strings.Contains(strings.ToLower(l.category), kw) {
				return l, true
			}
		}
	}
	for _, l := range licenses {
		if l.status == "VALID" {
			return l, true
		}
	}
	if len(licenses) > 0 {
		return licenses[0], true
	}
	return flLicense{}, false
}

func mergeFloridaRecord(jurisdiction string, summary flSummary, detail flDetail, detailErr error) license.Result {
	r := license.Result{
		Found:         true,
		Jurisdiction:  jurisdiction,
		FullName:      summary.fullName,
		LicenseNumber: summary.licenseNumber,
		RawFields:     map[string]string{"detail_path": summary.detailPath},
	}
	if detailErr != nil {
		r.RawFields["detail_error"] = detailErr.Error()
		return r
	}

	for k, v := range detail.fields {
		r.RawFields[k] = v
	}
	if r.FullName == "" {
		r.FullName = detail.fields["full_name"]
	}
	if r.LicenseNumber == "" {
		r.LicenseNumber = firstNonEmpty(detail.fields["license_num"], detail.fields["license"])
	}
	r.NationalID = detail.fields["npn_num"]
	if rs, ok := detail.fields["resident_status"]; ok {
		lower := strings.ToLower(rs)
		r.Resident = strings.Contains(lower, "resident") && !strings.Contains(lower, "non")
	}
	if chosen, ok := chooseLicense(detail.licenses); ok {
		r.LicenseCategory = chosen.category
		r.IssueDate = chosen.issueDate
		r.StatusText = chosen.status
		r.Active = license.NormalizeStatus(chosen.status)
	}
	r.ExpirationDate = detail.expiration
	r.Appointments = detail.appointments
	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
