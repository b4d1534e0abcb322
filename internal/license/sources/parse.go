package sources

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// These helpers are layout-neutral. Which selectors, columns and phrases a
// source uses stays in that source's file.

func parseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// findTable returns the first table matching any selector in order, then
// falls back to the first table that has rows. The bool is false when the page
// has no usable table.
func findTable(doc *goquery.Document, selectors ...string) (*goquery.Selection, bool) {
	for _, sel := range selectors {
		if t := doc.Find(sel).First(); t.Length() > 0 {
			return t, true
		}
	}
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if t.Find("tr").Length() > 0 {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}

// dataRows returns the rows of a table that carry td cells. Header rows made
// of th cells drop out here; a source that labels its header with td cells
// filters it in its own parser.
func dataRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("td").Length() > 0
	})
}

// collectRows applies the skip-and-continue policy: rows with fewer than
// minCells cells, or rows the parser rejects, are skipped and counted; the
// lookup continues with the remaining rows.
func collectRows[T any](rows *goquery.Selection, minCells int, parse func(cells, row *goquery.Selection) (T, bool)) ([]T, int) {
	var results []T
	skipped := 0
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minCells {
			skipped++
			return
		}
		r, ok := parse(cells, row)
		if !ok {
			skipped++
			return
		}
		results = append(results, r)
	})
	return results, skipped
}

// text returns the whitespace-collapsed text of a selection.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// cell returns the text of cell i, or "" when the row is shorter.
func cell(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return text(cells.Eq(i))
}

func containsAny(html string, phrases ...string) bool {
	lower := strings.ToLower(html)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// titleCase mirrors how sources print statuses in their UI ("VALID" -> "Valid").
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
