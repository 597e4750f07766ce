package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
)

// EventInput holds the editable fields of an event.
type EventInput struct {
	Name     string
	StartsAt *time.Time
	EndsAt   *time.Time
	Location string
}

// SessionInput holds the editable fields of a session.
type SessionInput struct {
	StartTime *time.Time
	EndTime   *time.Time
	Location  string
}

// CreateEvent creates an event owned by ownerID and makes the owner its first member.
func (s *Service) CreateEvent(ctx context.Context, ownerID int64, in EventInput) (*database.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if !validWindow(in.StartsAt, in.EndsAt) {
		return nil, ErrInvalidWindow
	}

	event := &database.Event{
		Name:     in.Name,
		OwnerID:  ownerID,
		StartsAt: in.StartsAt,
		EndsAt:   in.EndsAt,
		Location: strings.TrimSpace(in.Location),
	}

	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.GetMember(ctx, ownerID); err != nil {
			return err
		}
		if _, err := tx.GetEventByName(ctx, in.Name); err == nil {
			return fmt.Errorf("event %q: %w", in.Name, ErrConflict)
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if err := tx.CreateEvent(ctx, event); err != nil {
			return err
		}
		return tx.AddMembership(ctx, ownerID, event.ID)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns the events memberID belongs to.
func (s *Service) ListEvents(ctx context.Context, memberID int64) ([]database.Event, error) {
	var events []database.Event
	err := s.store.WithReadTx(ctx, func(tx database.Tx) error {
		var err error
		events, err = tx.ListEventsForMember(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreateSession appends a session to the event and seeds its roster.
// The event row stays locked until commit so sequence numbers never collide.
func (s *Service) CreateSession(ctx context.Context, actingMemberID, eventID int64, in SessionInput) (*database.Session, error) {
	if !validWindow(in.StartTime, in.EndTime) {
		return nil, ErrInvalidWindow
	}

	session := &database.Session{
		EventID:   eventID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Location:  strings.TrimSpace(in.Location),
	}

	var seeded int
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := requireOwner(ctx, tx, actingMemberID, eventID, true); err != nil {
			return err
		}
		maxSeq, err := tx.MaxSequenceNumber(ctx, eventID)
		if err != nil {
			return err
		}
		session.SequenceNumber = maxSeq + 1
		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}
		created, err := seedSession(ctx, tx, session)
		seeded = len(created)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Created session %d (#%d) of event %d with %d attendance rows",
		session.ID, session.SequenceNumber, eventID, seeded)
	return session, nil
}

// DeleteSession removes a session and its attendance.
func (s *Service) DeleteSession(ctx context.Context, actingMemberID, sessionID int64) error {
	return s.store.WithTx(ctx, func(tx database.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, err := requireOwner(ctx, tx, actingMemberID, session.EventID, true); err != nil {
			return err
		}
		if _, err := tx.DeleteAttendanceBySession(ctx, sessionID); err != nil {
			return err
		}
		return tx.DeleteSession(ctx, sessionID)
	})
}

// AddMember adds memberID to the event and gives them an absent row in
// every existing session.
func (s *Service) AddMember(ctx context.Context, actingMemberID, eventID, memberID int64) error {
	return s.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := requireOwner(ctx, tx, actingMemberID, eventID, false); err != nil {
			return err
		}
		if _, err := tx.GetMember(ctx, memberID); err != nil {
			return err
		}
		if err := tx.AddMembership(ctx, memberID, eventID); err != nil {
			return err
		}
		_, err := BackfillMembers(ctx, tx, eventID, []int64{memberID})
		return err
	})
}

// RemoveMember removes memberID from the event. Their attendance history
// stays. Removing a non-member is a no-op; the owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actingMemberID, eventID, memberID int64) error {
	return s.store.WithTx(ctx, func(tx database.Tx) error {
		event, err := requireOwner(ctx, tx, actingMemberID, eventID, false)
		if err != nil {
			return err
		}
		if memberID == event.OwnerID {
			return fmt.Errorf("cannot remove the owner of event %d: %w", eventID, ErrConflict)
		}
		_, err = tx.RemoveMembership(ctx, memberID, eventID)
		return err
	})
}

// FindMembers lists the members of an event whose name or email contains
// query, ignoring case and diacritics. An empty query lists everyone.
func (s *Service) FindMembers(ctx context.Context, eventID int64, query string) ([]database.Member, error) {
	var members []database.Member
	err := s.store.WithReadTx(ctx, func(tx database.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}
		var err error
		members, err = tx.ListEventMembers(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	needle := foldSearchText(query)
	if needle == "" {
		return members, nil
	}

	var found []database.Member
	for _, m := range members {
		if strings.Contains(foldSearchText(m.FullName()), needle) ||
			strings.Contains(foldSearchText(m.Email), needle) {
			found = append(found, m)
		}
	}
	return found, nil
}
