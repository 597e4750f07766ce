package attendance

import (
	"context"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
)

// SessionSummary counts the attendance of one session.
type SessionSummary struct {
	SessionID      int64
	SequenceNumber int
	StartTime      *time.Time
	EndTime        *time.Time
	Location       string
	Counts         database.StatusCounts
}

// EventOverview is the per-session attendance breakdown of an event.
type EventOverview struct {
	EventID  int64
	Name     string
	Sessions []SessionSummary
	Totals   database.StatusCounts
}

// SessionAttendance is the roster of a session.
type SessionAttendance struct {
	Session database.Session
	Roster  []database.RosterEntry
	Counts  database.StatusCounts
}

// GetEventAttendanceOverview counts attendance per session ordered by
// sequence number. With excludeCreator the owner's rows are not counted.
func (s *Service) GetEventAttendanceOverview(ctx context.Context, eventID int64, excludeCreator bool) (*EventOverview, error) {
	var overview *EventOverview
	err := s.store.WithReadTx(ctx, func(tx database.Tx) error {
		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}

		sessions, err := tx.ListSessions(ctx, eventID)
		if err != nil {
			return err
		}

		var exclude int64
		if excludeCreator {
			exclude = event.OwnerID
		}

		overview = &EventOverview{
			EventID:  event.ID,
			Name:     event.Name,
			Sessions: make([]SessionSummary, 0, len(sessions)),
		}
		for _, sess := range sessions {
			counts, err := tx.CountAttendanceByStatus(ctx, sess.ID, exclude)
			if err != nil {
				return err
			}
			overview.Sessions = append(overview.Sessions, SessionSummary{
				SessionID:      sess.ID,
				SequenceNumber: sess.SequenceNumber,
				StartTime:      sess.StartTime,
				EndTime:        sess.EndTime,
				Location:       sess.Location,
				Counts:         counts,
			})
			overview.Totals.Add(counts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overview, nil
}

// GetSessionAttendance returns the roster of a session with member names.
func (s *Service) GetSessionAttendance(ctx context.Context, sessionID int64) (*SessionAttendance, error) {
	var result *SessionAttendance
	err := s.store.WithReadTx(ctx, func(tx database.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		roster, err := tx.ListRoster(ctx, sessionID)
		if err != nil {
			return err
		}
		result = &SessionAttendance{Session: *session, Roster: roster}
		for _, r := range roster {
			result.Counts.Increment(r.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
