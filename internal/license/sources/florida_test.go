package sources

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensecheck/internal/license"
	"licensecheck/internal/license/contract"
	"licensecheck/internal/platform/metrics"
)

const flSessionCookie = "ASP.NET_SessionId"

// floridaRoutes wires the three-step conversation. The POST is refused unless
// the session cookie from the landing page comes back.
func floridaRoutes(t *testing.T, summary string, details map[string]http.HandlerFunc) map[string]http.HandlerFunc {
	routes := map[string]http.HandlerFunc{
		"GET /": func(w http.ResponseWriter, _ *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: flSessionCookie, Value: "abc123", Path: "/"})
			page(`<html><body><form></form></body></html>`)(w, nil)
		},
		"POST /": func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie(flSessionCookie); err != nil {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			assert.NoError(t, r.ParseForm())
			assert.Len(t, r.PostForm, 36, "search form must carry every field")
			assert.NotEmpty(t, r.Header.Get("Referer"))
			page(summary)(w, r)
		},
	}
	for path, h := range details {
		routes["GET "+path] = h
	}
	return routes
}

func TestFloridaLookupByName(t *testing.T) {
	t.Run("merges summary and detail into one record", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t,
			flSummaryPage("/Licensee/Detail/1"),
			map[string]http.HandlerFunc{"/Licensee/Detail/1": page(flDetailPage)},
		))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 1)
		r := results[0]
		assert.True(t, r.Found)
		assert.True(t, r.Active)
		assert.Equal(t, "FL", r.Jurisdiction)
		assert.Equal(t, "JANE DOE 0", r.FullName)
		assert.Equal(t, "W123450", r.LicenseNumber)
		assert.Equal(t, "17654321", r.NationalID)
		assert.Equal(t, "VALID", r.StatusText)
		assert.Equal(t, "2-14 Life & Annuity", r.LicenseCategory)
		assert.Equal(t, "01/15/2015", r.IssueDate)
		assert.Equal(t, "12/31/2026", r.ExpirationDate)
		assert.True(t, r.Resident)
		assert.Equal(t, []string{"ACME LIFE INSURANCE CO"}, r.Appointments)
		assert.Equal(t, "/Licensee/Detail/1", r.RawFields["detail_path"])
		assert.NotContains(t, r.RawFields, "email")
		assert.True(t, r.IsPrimaryLicensed())

		selected, ok := license.Select(results)
		require.True(t, ok)
		assert.Equal(t, r.FullName, selected.FullName)
	})

	t.Run("licensee with only invalid licenses is inactive", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t,
			flSummaryPage("/Licensee/Detail/9"),
			map[string]http.HandlerFunc{"/Licensee/Detail/9": page(flInvalidOnlyDetailPage)},
		))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 1)
		assert.True(t, results[0].Found)
		assert.False(t, results[0].Active)
		assert.Equal(t, "INVALID", results[0].StatusText)
		_, ok := license.Select(results)
		assert.False(t, ok)
	})

	t.Run("failed detail page keeps summary data", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t,
			flSummaryPage("/Licensee/Detail/1", "/Licensee/Detail/2"),
			map[string]http.HandlerFunc{
				"/Licensee/Detail/1": page(flDetailPage),
				"/Licensee/Detail/2": status(http.StatusInternalServerError),
			},
		))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 2)
		assert.True(t, results[0].Active)
		assert.True(t, results[1].Found)
		assert.False(t, results[1].Active)
		assert.Equal(t, "W123451", results[1].LicenseNumber)
		assert.Equal(t, "HTTP 500 on detail", results[1].RawFields["detail_error"])
	})

	t.Run("summary without a header row keeps every candidate", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t,
			flBareSummaryPage("/Licensee/Detail/1", "/Licensee/Detail/2"),
			map[string]http.HandlerFunc{
				"/Licensee/Detail/1": page(flDetailPage),
				"/Licensee/Detail/2": page(flInvalidOnlyDetailPage),
			},
		))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 2)
		assert.Equal(t, "W123450", results[0].LicenseNumber)
		assert.True(t, results[0].Active)
		assert.Equal(t, "W123451", results[1].LicenseNumber)
		assert.False(t, results[1].Active)
	})

	t.Run("failed detail page with no active candidate is a failed lookup", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t,
			flBareSummaryPage("/Licensee/Detail/1", "/Licensee/Detail/2"),
			map[string]http.HandlerFunc{
				"/Licensee/Detail/1": status(http.StatusServiceUnavailable),
				"/Licensee/Detail/2": page(flInvalidOnlyDetailPage),
			},
		))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 1)
		assert.Equal(t, license.KindFailure, results[0].Kind())
		assert.Equal(t, "HTTP 503 on detail", results[0].ErrorMessage)
	})

	t.Run("all detail pages failing is a failed lookup", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t,
			flSummaryPage("/Licensee/Detail/1"),
			map[string]http.HandlerFunc{"/Licensee/Detail/1": status(http.StatusBadGateway)},
		))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 1)
		assert.Equal(t, license.KindFailure, results[0].Kind())
		assert.Equal(t, "HTTP 502 on detail", results[0].ErrorMessage)
	})

	t.Run("detail fetches are capped", func(t *testing.T) {
		paths := []string{"/d/1", "/d/2", "/d/3", "/d/4", "/d/5", "/d/6", "/d/7"}
		details := map[string]http.HandlerFunc{}
		for _, p := range paths {
			details[p] = page(flDetailPage)
		}
		srv := newFixtureServer(t, floridaRoutes(t, flSummaryPage(paths...), details))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		assert.Len(t, results, flMaxCandidates)
		// landing + search + capped detail pages
		assert.EqualValues(t, 2+flMaxCandidates, srv.requests())
	})

	t.Run("search error is a failed lookup", func(t *testing.T) {
		srv := newFixtureServer(t, map[string]http.HandlerFunc{
			"GET /": status(http.StatusInternalServerError),
		})
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Jane", "Doe")

		require.Len(t, results, 1)
		assert.False(t, results[0].Found)
		assert.Equal(t, "HTTP 500 on GET", results[0].ErrorMessage)
	})

	t.Run("empty results page is not found", func(t *testing.T) {
		srv := newFixtureServer(t, floridaRoutes(t, emptyPage, nil))
		fl := NewFlorida(testOptions(Endpoints{Florida: srv.URL}))
		defer fl.Release()

		results := fl.LookupByName(context.Background(), "Nobody", "Here")

		require.Len(t, results, 1)
		assert.Equal(t, license.KindNotFound, results[0].Kind())
	})
}

func TestFloridaSearchForm(t *testing.T) {
	form := floridaForm(" Jane ", "Doe", "", "17654321")

	assert.Len(t, form, 36)
	assert.Equal(t, "Jane", form.Get("IndividualFNameFilter"))
	assert.Equal(t, "Doe", form.Get("IndividualLNameFilter"))
	assert.Equal(t, "17654321", form.Get("NPNNoFilter"))
	assert.Equal(t, "1", form.Get("LicenseStatusFilter"))
	assert.Equal(t, "Name", form.Get("LicenseeSearchInfo.PagingInfo.SortBy"))
	_, present := form["FLLicenseNoFilter"]
	assert.True(t, present, "empty fields are still sent")
}

func TestFloridaFieldKey(t *testing.T) {
	assert.Equal(t, "npn_num", fieldKey("NPN #:"))
	assert.Equal(t, "resident_status", fieldKey(" Resident Status: "))
	assert.Equal(t, "license_num", fieldKey("License #"))
}

func TestChooseLicense(t *testing.T) {
	t.Run("valid life before valid health", func(t *testing.T) {
		got, ok := chooseLicense([]flLicense{
			{category: "Health", status: "VALID"},
			{category: "Life", status: "INVALID"},
			{category: "Life & Annuity", status: "VALID"},
		})
		require.True(t, ok)
		assert.Equal(t, "Life & Annuity", got.category)
	})

	t.Run("valid health before other valid", func(t *testing.T) {
		got, ok := chooseLicense([]flLicense{
			{category: "Property", status: "VALID"},
			{category: "Health", status: "VALID"},
		})
		require.True(t, ok)
		assert.Equal(t, "Health", got.category)
	})

	t.Run("first invalid when nothing is valid", func(t *testing.T) {
		got, ok := chooseLicense([]flLicense{{category: "Life", status: "INVALID"}})
		require.True(t, ok)
		assert.Equal(t, "INVALID", got.status)
	})

	t.Run("none", func(t *testing.T) {
		_, ok := chooseLicense(nil)
		assert.False(t, ok)
	})
}

func TestFloridaContract(t *testing.T) {
	srv := newFixtureServer(t, floridaRoutes(t,
		flSummaryPage("/Licensee/Detail/1"),
		map[string]http.HandlerFunc{"/Licensee/Detail/1": page(flDetailPage)},
	))
	newAdapter := func() license.Adapter { return NewFlorida(testOptions(Endpoints{Florida: srv.URL})) }

	suite := &contract.ContractSuite{
		Jurisdiction: "FL",
		Tests: []contract.ContractTest{
			{Name: "name search", NewAdapter: newAdapter, Lookup: contract.ByName("Jane", "Doe"), ExpectedKind: license.KindRecord},
			{Name: "npn search", NewAdapter: newAdapter, Lookup: contract.ByNationalID("17654321"), ExpectedKind: license.KindRecord},
			{Name: "license number search", NewAdapter: newAdapter, Lookup: contract.ByLicenseNumber("W123450"), ExpectedKind: license.KindRecord},
		},
	}
	suite.Run(t)

	(&contract.ReleaseTest{NewAdapter: newAdapter}).Run(t)
}

func TestFloridaRecordsMetrics(t *testing.T) {
	srv := newFixtureServer(t, map[string]http.HandlerFunc{"GET /": status(http.StatusServiceUnavailable)})
	m := metrics.New(prometheus.NewRegistry())
	opts := testOptions(Endpoints{Florida: srv.URL})
	opts.Metrics = m
	fl := NewFlorida(opts)
	defer fl.Release()

	fl.LookupByName(context.Background(), "Jane", "Doe")

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.LookupResults.WithLabelValues("FL", string(license.KindFailure))))
}
