package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/veriface/internal/database"
)

const sessionColumns = `id, event_id, sequence_number, start_time, end_time, location`

func scanSession(row rowScanner) (*database.Session, error) {
	var s database.Session
	if err := row.Scan(&s.ID, &s.EventID, &s.SequenceNumber, &s.StartTime, &s.EndTime, &s.Location); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a session with its precomputed sequence number.
func (r *txRepo) CreateSession(ctx context.Context, s *database.Session) error {
	err := r.tx.QueryRowContext(ctx, `
		INSERT INTO sessions (event_id, sequence_number, start_time, end_time, location)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.EventID, s.SequenceNumber, s.StartTime, s.EndTime, s.Location).Scan(&s.ID)
	if err != nil {
		return mapError(err, "insert session")
	}
	return nil
}

// MaxSequenceNumber returns the highest sequence number of an event.
func (r *txRepo) MaxSequenceNumber(ctx context.Context, eventID int64) (int, error) {
	var maxSeq int
	err := r.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM sessions WHERE event_id = $1`, eventID).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("query max sequence number: %w", err)
	}
	return maxSeq, nil
}

// GetSession retrieves a session by ID.
func (r *txRepo) GetSession(ctx context.Context, id int64) (*database.Session, error) {
	s, err := scanSession(r.tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("get session %d", id))
	}
	return s, nil
}

// ListSessions returns the sessions of an event.
func (r *txRepo) ListSessions(ctx context.Context, eventID int64) ([]database.Session, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE event_id = $1 ORDER BY sequence_number`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session row.
func (r *txRepo) DeleteSession(ctx context.Context, id int64) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return mapError(err, fmt.Sprintf("delete session %d", id))
	}
	return nil
}

// DeleteSessionsByEvent removes every session row of an event.
func (r *txRepo) DeleteSessionsByEvent(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM sessions WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, mapError(err, "delete sessions")
	}
	return rowsAffected(res, "delete sessions")
}
