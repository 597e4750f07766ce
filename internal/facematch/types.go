// Package facematch scores face embeddings against enrolled references and
// holds the geometry helpers used when a photo contains several faces.
package facematch

// Candidate is one roster row offered to the matcher.
type Candidate struct {
	MemberID     int64
	AttendanceID int64
	Embedding    []float32 // nil when the member is not enrolled
}

// Match is the best-scoring candidate.
type Match struct {
	MemberID     int64
	AttendanceID int64
	Similarity   float64
}

// Outcome classifies the result of BestMatch.
type Outcome uint8

const (
	// OutcomeMatched means a candidate reached the threshold
	OutcomeMatched Outcome = iota + 1
	// OutcomeNoCandidates means no candidate had a reference embedding
	OutcomeNoCandidates
	// OutcomeBelowThreshold means candidates were enrolled but none was close enough
	OutcomeBelowThreshold
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeBelowThreshold:
		return "below_threshold"
	}
	return "unknown"
}

// Face is a face detected in an uploaded photo.
type Face struct {
	Embedding []float32
	BBox      BBox    // pixel coordinates
	DetScore  float64 // detector confidence
}
