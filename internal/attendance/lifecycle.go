package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
)

// CheckIn marks the member present in the session at when, creating the
// attendance row if it does not exist. Repeating the call only moves the
// check-in time.
func (s *Service) CheckIn(ctx context.Context, memberID, sessionID int64, when time.Time) (*database.Attendance, error) {
	if when.IsZero() {
		when = s.clock()
	}

	var row *database.Attendance
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			return err
		}
		if _, err := tx.GetMember(ctx, memberID); err != nil {
			return err
		}
		var err error
		row, err = s.checkIn(ctx, tx, memberID, sessionID, when.UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) checkIn(ctx context.Context, tx database.Tx, memberID, sessionID int64, when time.Time) (*database.Attendance, error) {
	row, err := tx.GetAttendance(ctx, memberID, sessionID)
	if errors.Is(err, database.ErrNotFound) {
		row = &database.Attendance{
			MemberID:    memberID,
			SessionID:   sessionID,
			Status:      database.StatusPresent,
			CheckInTime: &when,
		}
		if err := tx.InsertAttendance(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}
	if err != nil {
		return nil, err
	}

	row.Status = database.StatusPresent
	row.CheckInTime = &when
	if err := tx.UpdateAttendance(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateStatus sets the status of an existing attendance row and adjusts
// its check-in time to match.
func (s *Service) UpdateStatus(ctx context.Context, memberID, sessionID int64, status database.AttendanceStatus) (*database.Attendance, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(status))
	}

	var row *database.Attendance
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		row, err = tx.GetAttendance(ctx, memberID, sessionID)
		if err != nil {
			return err
		}
		applyStatus(row, status, s.clock())
		return tx.UpdateAttendance(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// applyStatus is the transition table of the attendance state machine.
func applyStatus(row *database.Attendance, status database.AttendanceStatus, now time.Time) {
	row.Status = status
	switch status {
	case database.StatusPresent, database.StatusLate:
		if row.CheckInTime == nil {
			row.CheckInTime = &now
		}
	case database.StatusAbsent:
		row.CheckInTime = nil
	case database.StatusExcused:
		// timestamps are kept as recorded
	}
}

// CheckOut records when a checked-in member left the session.
func (s *Service) CheckOut(ctx context.Context, memberID, sessionID int64, when time.Time) (*database.Attendance, error) {
	if when.IsZero() {
		when = s.clock()
	}
	when = when.UTC()

	var row *database.Attendance
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		row, err = tx.GetAttendance(ctx, memberID, sessionID)
		if err != nil {
			return err
		}
		if row.Status != database.StatusPresent && row.Status != database.StatusLate {
			return fmt.Errorf("member %d is %s: %w", memberID, row.Status, ErrConflict)
		}
		if row.CheckInTime == nil || when.Before(*row.CheckInTime) {
			return fmt.Errorf("member %d has no check-in before %s: %w", memberID, when.Format(time.RFC3339), ErrConflict)
		}
		row.CheckOutTime = &when
		return tx.UpdateAttendance(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}
