// Package attendance implements check-in by face, the attendance state
// machine and the event, session and membership lifecycle around it.
package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/database"
)

// Options configures a Service. Zero values fall back to the package constants.
type Options struct {
	EmbeddingDim        int
	LookAlikeSimilarity float64
	Now                 func() time.Time
}

// Service is the entry point for every attendance operation. It holds no
// domain state between calls; each operation runs in its own unit of work.
type Service struct {
	store     database.Store
	index     *database.MemberIndex
	dim       int
	lookAlike float64
	now       func() time.Time
}

// NewService creates a Service. index may be nil, in which case enrollment
// skips the look-alike report.
func NewService(store database.Store, index *database.MemberIndex, opts Options) *Service {
	if opts.EmbeddingDim <= 0 {
		opts.EmbeddingDim = constants.FaceEmbeddingDim
	}
	if opts.LookAlikeSimilarity <= 0 {
		opts.LookAlikeSimilarity = constants.LookAlikeSimilarity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		index:     index,
		dim:       opts.EmbeddingDim,
		lookAlike: opts.LookAlikeSimilarity,
		now:       opts.Now,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// LoadIndex rebuilds the look-alike index from the enrolled members in the store.
func (s *Service) LoadIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	var members []database.Member
	err := s.store.WithReadTx(ctx, func(tx database.Tx) error {
		var err error
		members, err = tx.ListEnrolledMembers(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("loading enrolled members: %w", err)
	}

	s.index.BuildFromMembers(members)
	log.Printf("Look-alike index loaded with %d members", s.index.Count())
	return nil
}

// AuthorizeOwner returns ErrForbidden unless actingMemberID owns the event.
func (s *Service) AuthorizeOwner(ctx context.Context, actingMemberID, eventID int64) error {
	return s.store.WithReadTx(ctx, func(tx database.Tx) error {
		_, err := requireOwner(ctx, tx, actingMemberID, eventID, false)
		return err
	})
}

// AuthorizeSessionOwner returns ErrForbidden unless actingMemberID owns the
// event the session belongs to.
func (s *Service) AuthorizeSessionOwner(ctx context.Context, actingMemberID, sessionID int64) error {
	return s.store.WithReadTx(ctx, func(tx database.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		_, err = requireOwner(ctx, tx, actingMemberID, session.EventID, false)
		return err
	})
}

// requireOwner loads the event and checks that actingMemberID owns it.
func requireOwner(ctx context.Context, tx database.Tx, actingMemberID, eventID int64, lock bool) (*database.Event, error) {
	var event *database.Event
	var err error
	if lock {
		event, err = tx.LockEvent(ctx, eventID)
	} else {
		event, err = tx.GetEvent(ctx, eventID)
	}
	if err != nil {
		return nil, err
	}
	if event.OwnerID != actingMemberID {
		return nil, fmt.Errorf("event %d: %w", eventID, ErrForbidden)
	}
	return event, nil
}

func validWindow(start, end *time.Time) bool {
	return start == nil || end == nil || !end.Before(*start)
}
