package license

// Select picks the best candidate from one name lookup.
//
// Rule priority:
//  1. first found, active, life-licensed record
//  2. first found, active record
//  3. no match
//
// Failed and not-found Results are never candidates.
func Select(results []Result) (Result, bool) {
	for _, r := range results {
		if isCandidate(r) && r.IsPrimaryLicensed() {
			return r, true
		}
	}
	for _, r := range results {
		if isCandidate(r) {
			return r, true
		}
	}
	return Result{}, false
}

func isCandidate(r Result) bool {
	return r.Found && r.Active && !r.HasError()
}

// LeadingFailure returns the error message of the first Result, if any. A
// populated message there means the lookup itself failed, which consumers must
// not confuse with "no match".
func LeadingFailure(results []Result) (string, bool) {
	if len(results) == 0 || !results[0].HasError() {
		return "", false
	}
	return results[0].ErrorMessage, true
}
