package facematch

import "github.com/kozaktomas/veriface/internal/database"

// BestMatch scores query against every enrolled candidate and returns the
// highest cosine similarity. Candidates are scanned in order and a later
// candidate replaces the current best only with a strictly greater score,
// so ties go to the first one seen. Zero vectors and dimension mismatches
// are skipped.
//
// The returned Match is meaningful for OutcomeMatched and, as the closest
// scorable candidate, for OutcomeBelowThreshold when Similarity > -1.
func BestMatch(query []float32, candidates []Candidate, threshold float64) (Match, Outcome) {
	best := Match{Similarity: -1}
	found := false
	enrolled := false

	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		enrolled = true

		sim, ok := database.CosineSimilarity(query, c.Embedding)
		if !ok {
			continue
		}
		if !found || sim > best.Similarity {
			best = Match{MemberID: c.MemberID, AttendanceID: c.AttendanceID, Similarity: sim}
			found = true
		}
	}

	switch {
	case !enrolled:
		return Match{Similarity: -1}, OutcomeNoCandidates
	case !found || best.Similarity < threshold:
		return best, OutcomeBelowThreshold
	default:
		return best, OutcomeMatched
	}
}
