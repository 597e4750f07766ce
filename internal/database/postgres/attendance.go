package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/veriface/internal/database"
)

const attendanceColumns = `a.id, a.member_id, a.session_id, a.status, a.check_in_time, a.check_out_time`

func scanAttendance(row rowScanner, extra ...any) (*database.Attendance, error) {
	var a database.Attendance
	var status string
	dest := append([]any{&a.ID, &a.MemberID, &a.SessionID, &status, &a.CheckInTime, &a.CheckOutTime}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	parsed, err := database.ParseAttendanceStatus(status)
	if err != nil {
		return nil, fmt.Errorf("attendance %d: %w", a.ID, err)
	}
	a.Status = parsed
	return &a, nil
}

// ListAttendance returns the roster of a session.
func (r *txRepo) ListAttendance(ctx context.Context, sessionID int64) ([]database.Attendance, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance a
		WHERE a.session_id = $1
		ORDER BY a.member_id, a.id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var result []database.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return result, nil
}

// ListRoster returns the roster of a session joined with member names.
func (r *txRepo) ListRoster(ctx context.Context, sessionID int64) ([]database.RosterEntry, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+attendanceColumns+`, m.first_name, m.last_name, m.email
		FROM attendance a
		JOIN members m ON m.id = a.member_id
		WHERE a.session_id = $1
		ORDER BY a.member_id, a.id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var result []database.RosterEntry
	for rows.Next() {
		var entry database.RosterEntry
		a, err := scanAttendance(rows, &entry.FirstName, &entry.LastName, &entry.Email)
		if err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		entry.Attendance = *a
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return result, nil
}

// GetAttendance returns the attendance row of a member in a session.
func (r *txRepo) GetAttendance(ctx context.Context, memberID, sessionID int64) (*database.Attendance, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance a
		WHERE a.member_id = $1 AND a.session_id = $2
	`, memberID, sessionID)
	a, err := scanAttendance(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("get attendance of member %d in session %d", memberID, sessionID))
	}
	return a, nil
}

// InsertAttendance inserts an attendance row.
func (r *txRepo) InsertAttendance(ctx context.Context, a *database.Attendance) error {
	if !a.Status.Valid() {
		return fmt.Errorf("insert attendance: invalid status %d", uint8(a.Status))
	}
	err := r.tx.QueryRowContext(ctx, `
		INSERT INTO attendance (member_id, session_id, status, check_in_time, check_out_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.MemberID, a.SessionID, a.Status.String(), a.CheckInTime, a.CheckOutTime).Scan(&a.ID)
	if err != nil {
		return mapError(err, "insert attendance")
	}
	return nil
}

// UpdateAttendance writes the status and timestamps of an existing row.
func (r *txRepo) UpdateAttendance(ctx context.Context, a *database.Attendance) error {
	if !a.Status.Valid() {
		return fmt.Errorf("update attendance: invalid status %d", uint8(a.Status))
	}
	res, err := r.tx.ExecContext(ctx, `
		UPDATE attendance SET status = $1, check_in_time = $2, check_out_time = $3
		WHERE id = $4
	`, a.Status.String(), a.CheckInTime, a.CheckOutTime, a.ID)
	if err != nil {
		return mapError(err, "update attendance")
	}
	n, err := rowsAffected(res, "update attendance")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attendance %d: %w", a.ID, database.ErrNotFound)
	}
	return nil
}

// DeleteAttendanceBySession removes the roster of a session.
func (r *txRepo) DeleteAttendanceBySession(ctx context.Context, sessionID int64) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM attendance WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, mapError(err, "delete attendance")
	}
	return rowsAffected(res, "delete attendance")
}

// CountAttendanceByStatus groups a session's rows by status.
func (r *txRepo) CountAttendanceByStatus(ctx context.Context, sessionID, excludeMemberID int64) (database.StatusCounts, error) {
	var counts database.StatusCounts

	rows, err := r.tx.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM attendance
		WHERE session_id = $1 AND ($2::bigint = 0 OR member_id <> $2::bigint)
		GROUP BY status
	`, sessionID, excludeMemberID)
	if err != nil {
		return counts, fmt.Errorf("count attendance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return counts, fmt.Errorf("scan attendance count: %w", err)
		}
		status, err := database.ParseAttendanceStatus(name)
		if err != nil {
			return counts, fmt.Errorf("count attendance: %w", err)
		}
		switch status {
		case database.StatusPresent:
			counts.Present += n
		case database.StatusLate:
			counts.Late += n
		case database.StatusAbsent:
			counts.Absent += n
		case database.StatusExcused:
			counts.Excused += n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("iterate attendance counts: %w", err)
	}
	return counts, nil
}
