package attendance

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/database"
)

// LookAlikeMember is an enrolled member whose reference face resembles a new enrollment.
type LookAlikeMember struct {
	MemberID   int64
	Name       string
	Similarity float64
}

// EnrollResult reports a stored reference embedding.
type EnrollResult struct {
	MemberID   int64
	LookAlikes []LookAlikeMember
}

// Enroll stores the reference embedding of a member and reports other
// members whose faces are similar enough to be confused with it.
func (s *Service) Enroll(ctx context.Context, memberID int64, embedding []float32) (*EnrollResult, error) {
	if err := s.validateEmbedding(embedding); err != nil {
		return nil, err
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		return tx.SetMemberEmbedding(ctx, memberID, stored)
	})
	if err != nil {
		return nil, err
	}

	result := &EnrollResult{MemberID: memberID}
	if s.index == nil {
		return result, nil
	}

	if err := s.index.Put(memberID, stored); err != nil {
		// The store is the source of truth; the index catches up on the next LoadIndex.
		log.Printf("Warning: failed to index member %d: %v", memberID, err)
		return result, nil
	}

	similar := s.index.LookAlikes(stored, memberID, constants.LookAlikeSearchLimit, s.lookAlike)
	if len(similar) == 0 {
		return result, nil
	}

	ids := make([]int64, len(similar))
	for i, l := range similar {
		ids[i] = l.MemberID
	}
	var members map[int64]*database.Member
	err = s.store.WithReadTx(ctx, func(tx database.Tx) error {
		var err error
		members, err = tx.GetMembers(ctx, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading look-alikes: %w", err)
	}

	for _, l := range similar {
		m, ok := members[l.MemberID]
		if !ok {
			continue
		}
		result.LookAlikes = append(result.LookAlikes, LookAlikeMember{
			MemberID:   l.MemberID,
			Name:       m.FullName(),
			Similarity: l.Similarity,
		})
	}
	return result, nil
}

func (s *Service) validateEmbedding(embedding []float32) error {
	if len(embedding) != s.dim {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrInvalidEmbedding, s.dim, len(embedding))
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite component", ErrInvalidEmbedding)
		}
	}
	if database.IsZeroVector(embedding) {
		return fmt.Errorf("%w: zero vector", ErrInvalidEmbedding)
	}
	return nil
}
