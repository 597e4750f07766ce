package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/veriface/internal/database"
)

// SeedAttendance creates an absent row for every event member who has no
// row in the session yet and returns the new rows. Existing rows are never
// touched, so seeding twice is a no-op.
func (s *Service) SeedAttendance(ctx context.Context, sessionID int64) ([]database.Attendance, error) {
	var created []database.Attendance
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		created, err = seedSession(ctx, tx, session)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// BackfillAttendance seeds every session of the event and returns the number of rows created.
func (s *Service) BackfillAttendance(ctx context.Context, eventID int64) (int, error) {
	total := 0
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}
		sessions, err := tx.ListSessions(ctx, eventID)
		if err != nil {
			return err
		}
		for i := range sessions {
			created, err := seedSession(ctx, tx, &sessions[i])
			if err != nil {
				return err
			}
			total += len(created)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func seedSession(ctx context.Context, tx database.Tx, session *database.Session) ([]database.Attendance, error) {
	memberIDs, err := tx.ListMemberIDs(ctx, session.EventID)
	if err != nil {
		return nil, err
	}
	return insertAbsent(ctx, tx, session.ID, memberIDs)
}

// insertAbsent adds an absent row for each member lacking one in the session.
func insertAbsent(ctx context.Context, tx database.Tx, sessionID int64, memberIDs []int64) ([]database.Attendance, error) {
	existing, err := tx.ListAttendance(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	has := make(map[int64]bool, len(existing))
	for _, a := range existing {
		has[a.MemberID] = true
	}

	var created []database.Attendance
	for _, memberID := range memberIDs {
		if has[memberID] {
			continue
		}
		row := database.Attendance{MemberID: memberID, SessionID: sessionID, Status: database.StatusAbsent}
		if err := tx.InsertAttendance(ctx, &row); err != nil {
			return nil, fmt.Errorf("seeding member %d in session %d: %w", memberID, sessionID, err)
		}
		has[memberID] = true
		created = append(created, row)
	}
	return created, nil
}

// BackfillMembers adds absent rows for memberIDs in every existing session
// of the event. It runs inside the caller's unit of work.
func BackfillMembers(ctx context.Context, tx database.Tx, eventID int64, memberIDs []int64) (int, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}
	sessions, err := tx.ListSessions(ctx, eventID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, session := range sessions {
		created, err := insertAbsent(ctx, tx, session.ID, memberIDs)
		if err != nil {
			return total, err
		}
		total += len(created)
	}
	return total, nil
}
