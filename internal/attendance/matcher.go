package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/kozaktomas/veriface/internal/facematch"
)

// MatchResult describes a successful check-in by face.
type MatchResult struct {
	MemberID     int64
	MemberName   string
	Similarity   float64
	AttendanceID int64
	Status       database.AttendanceStatus
	CheckInTime  time.Time
}

// FaceCheckIn is the outcome for one face of a group photo.
type FaceCheckIn struct {
	Index  int
	Result *MatchResult
	Err    error
}

// CheckInByEmbedding identifies the roster member closest to query and marks
// them present. Nothing is written unless a member reaches threshold.
//
// The roster is read and the winning row updated in one unit of work. Two
// concurrent check-ins for the same member both succeed and the later
// check-in time wins.
func (s *Service) CheckInByEmbedding(ctx context.Context, sessionID int64, query []float32, threshold float64) (*MatchResult, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidEmbedding)
	}

	var result *MatchResult
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			return err
		}

		roster, err := tx.ListAttendance(ctx, sessionID)
		if err != nil {
			return err
		}

		ids := make([]int64, len(roster))
		for i, a := range roster {
			ids[i] = a.MemberID
		}
		members, err := tx.GetMembers(ctx, ids)
		if err != nil {
			return err
		}

		candidates := make([]facematch.Candidate, 0, len(roster))
		for _, a := range roster {
			c := facematch.Candidate{MemberID: a.MemberID, AttendanceID: a.ID}
			if m, ok := members[a.MemberID]; ok {
				c.Embedding = m.Embedding
			}
			candidates = append(candidates, c)
		}

		match, outcome := facematch.BestMatch(query, candidates, threshold)
		switch outcome {
		case facematch.OutcomeNoCandidates:
			return fmt.Errorf("session %d: %w", sessionID, ErrNoEnrolledCandidates)
		case facematch.OutcomeBelowThreshold:
			return fmt.Errorf("best similarity %.3f: %w", match.Similarity, ErrNotRecognized)
		}

		row, err := s.checkIn(ctx, tx, match.MemberID, sessionID, s.clock())
		if err != nil {
			return err
		}

		m := members[match.MemberID]
		result = &MatchResult{
			MemberID:     match.MemberID,
			MemberName:   m.FullName(),
			Similarity:   match.Similarity,
			AttendanceID: row.ID,
			Status:       row.Status,
			CheckInTime:  *row.CheckInTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckInFaces runs an independent check-in for every query. A failure for
// one face is reported in its slot and never affects the others.
func (s *Service) CheckInFaces(ctx context.Context, sessionID int64, queries [][]float32, threshold float64) []FaceCheckIn {
	results := make([]FaceCheckIn, len(queries))
	for i, query := range queries {
		res, err := s.CheckInByEmbedding(ctx, sessionID, query, threshold)
		results[i] = FaceCheckIn{Index: i, Result: res, Err: err}
	}
	return results
}
