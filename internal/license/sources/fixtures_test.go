package sources

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// Page fixtures trimmed from captured search responses.

const emptyPage = `<html><body><p>No results found for your search.</p></body></html>`

const txResultsPage = `<html><body>
<table class="resultsTable">
  <tr><th>Name</th><th>License #</th><th>Status</th><th>Type</th><th>Expiration</th></tr>
  <tr><td>DOE, JANE</td><td>1234567</td><td>ACTIVE</td><td>General Lines - Life, Accident, Health and HMO</td><td>06/30/2027</td></tr>
  <tr><td>DOE, JOHN</td><td>7654321</td></tr>
  <tr><td> </td><td>0000000</td><td>ACTIVE</td><td>Life</td><td>01/01/2026</td></tr>
  <tr><td>DOE, JANET</td><td>2345678</td><td>EXPIRED</td><td>Property</td><td>01/31/2020</td></tr>
</table>
</body></html>`

const caResultsPage = `<html><body>
<table id="gridResult">
  <tr><td>License Number</td><td>Name</td><td>Status</td><td>Type</td></tr>
  <tr><td>0A12345</td><td>DOE, JANE MARIE</td><td>Active</td><td>Life-Only Agent</td></tr>
  <tr><td>lonely</td></tr>
  <tr><td>0B99999</td><td>DOE, JANE</td><td>Inactive</td><td>Accident and Health Agent</td></tr>
</table>
</body></html>`

const naicResultsPage = `<html><body>
<table class="results">
  <thead><tr><th>NPN</th><th>Name</th><th>State</th><th>License #</th></tr></thead>
  <tbody>
    <tr><td>17654321</td><td>JANE DOE</td><td>NV</td><td>3301234</td></tr>
    <tr><td>18888888</td><td>JANE DOE</td><td>AZ</td><td>AZ-99</td></tr>
    <tr><td>19999999</td><td>JANE Q DOE</td><td></td><td></td></tr>
  </tbody>
</table>
</body></html>`

func flSummaryPage(detailPaths ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="table"><thead><tr><th>Name</th><th>License #</th><th>City</th></tr></thead><tbody>`)
	for i, p := range detailPaths {
		fmt.Fprintf(&b, `<tr><td><a href="%s">JANE DOE %d</a></td><td>W12345%d</td><td>Miami</td></tr>`, p, i, i)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// flBareSummaryPage is the summary as FL serves it today: no header row, the
// candidates straight in tbody.
func flBareSummaryPage(detailPaths ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="table"><tbody>`)
	for i, p := range detailPaths {
		fmt.Fprintf(&b, `<tr><td><a href="%s">JANE DOE %d</a></td><td>W12345%d</td><td>Miami</td></tr>`, p, i, i)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

const flDetailPage = `<html><body>
<div class="form-group"><label>Full Name:</label><div>JANE DOE</div></div>
<div class="form-group"><label>NPN #:</label><div>17654321</div></div>
<div class="form-group"><label>Resident Status:</label><div>Resident</div></div>
<div class="form-group"><label>Email:</label><div></div></div>
<div class="panel">
  <div class="panel-heading">Invalid Licenses</div>
  <div class="panel-body"><table>
    <thead><tr><th>License Type</th><th>Issue Date</th></tr></thead>
    <tbody><tr><td>2-40 Health</td><td>03/01/2010</td></tr></tbody>
  </table></div>
</div>
<div class="panel">
  <div class="panel-heading">Valid Licenses</div>
  <div class="panel-body"><table>
    <thead><tr><th>License Type</th><th>Issue Date</th></tr></thead>
    <tbody>
      <tr><td>2-15 Health</td><td>05/05/2016</td></tr>
      <tr><td>2-14 Life &amp; Annuity</td><td>01/15/2015</td></tr>
    </tbody>
  </table></div>
</div>
<div class="panel">
  <div class="panel-heading">Active Appointments</div>
  <div class="panel-body"><table>
    <thead><tr><th>Company</th><th>Issue Date</th><th>Exp Date</th><th>Status Date</th></tr></thead>
    <tbody><tr><td>ACME LIFE INSURANCE CO</td><td>02/01/2015</td><td>12/31/2026</td><td>02/01/2015</td></tr></tbody>
  </table></div>
</div>
<div class="panel">
  <div class="panel-heading">Inactive Appointments</div>
  <div class="panel-body"><table>
    <tbody><tr><td>OLD MUTUAL CO</td><td>02/01/2009</td><td>12/31/2012</td><td>01/01/2013</td></tr></tbody>
  </table></div>
</div>
</body></html>`

const flInvalidOnlyDetailPage = `<html><body>
<div class="form-group"><label>NPN #:</label><div>11111111</div></div>
<div class="panel">
  <div class="panel-heading">Invalid Licenses</div>
  <div class="panel-body"><table>
    <tbody><tr><td>2-14 Life &amp; Annuity</td><td>01/15/2005</td></tr></tbody>
  </table></div>
</div>
</body></html>`

// fixtureServer serves canned pages keyed by "METHOD path" and counts hits.
type fixtureServer struct {
	*httptest.Server
	hits   atomic.Int64
	routes map[string]http.HandlerFunc
}

func newFixtureServer(t *testing.T, routes map[string]http.HandlerFunc) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{routes: routes}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		h, ok := fs.routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fixtureServer) requests() int64 { return fs.hits.Load() }

func page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

func testOptions(endpoints Endpoints) Options {
	return Options{Endpoints: endpoints, Timeout: 5 * time.Second}
}
