package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/veriface/internal/database"
)

// errNotOwner aborts the cascade unit of work without being reported as a failure.
var errNotOwner = errors.New("not owner")

// DeleteEventCascade removes an event with its sessions, their attendance
// and its memberships, in that order, in one unit of work.
//
// It returns false with a nil error when actingMemberID is not the owner.
// Deleting an event that does not exist succeeds.
func (s *Service) DeleteEventCascade(ctx context.Context, actingMemberID, eventID int64) (bool, error) {
	var stats struct {
		attendance, sessions, memberships int64
	}
	missing := false

	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if errors.Is(err, database.ErrNotFound) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		if event.OwnerID != actingMemberID {
			return errNotOwner
		}

		sessions, err := tx.ListSessions(ctx, eventID)
		if err != nil {
			return err
		}
		for _, sess := range sessions {
			n, err := tx.DeleteAttendanceBySession(ctx, sess.ID)
			if err != nil {
				return fmt.Errorf("deleting attendance of session %d: %w", sess.ID, err)
			}
			stats.attendance += n
		}

		if stats.sessions, err = tx.DeleteSessionsByEvent(ctx, eventID); err != nil {
			return fmt.Errorf("deleting sessions: %w", err)
		}
		if stats.memberships, err = tx.DeleteMembershipsByEvent(ctx, eventID); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		if err := tx.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("deleting event: %w", err)
		}
		return nil
	})

	switch {
	case err == nil && missing:
		return true, nil
	case err == nil:
		log.Printf("Deleted event %d: %d sessions, %d attendance rows, %d memberships",
			eventID, stats.sessions, stats.attendance, stats.memberships)
		return true, nil
	case errors.Is(err, errNotOwner):
		return false, nil
	default:
		return false, fmt.Errorf("delete event %d: %w", eventID, err)
	}
}
