package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/veriface/internal/database"
)

const eventColumns = `id, name, owner_id, starts_at, ends_at, location, created_at`

func scanEvent(row rowScanner) (*database.Event, error) {
	var e database.Event
	if err := row.Scan(&e.ID, &e.Name, &e.OwnerID, &e.StartsAt, &e.EndsAt, &e.Location, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEvent retrieves an event by ID.
func (r *txRepo) GetEvent(ctx context.Context, id int64) (*database.Event, error) {
	e, err := scanEvent(r.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("get event %d", id))
	}
	return e, nil
}

// LockEvent retrieves an event and holds a row lock until the transaction ends.
func (r *txRepo) LockEvent(ctx context.Context, id int64) (*database.Event, error) {
	e, err := scanEvent(r.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("lock event %d", id))
	}
	return e, nil
}

// GetEventByName retrieves an event by its unique name.
func (r *txRepo) GetEventByName(ctx context.Context, name string) (*database.Event, error) {
	e, err := scanEvent(r.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE name = $1`, name))
	if err != nil {
		return nil, mapError(err, "get event by name")
	}
	return e, nil
}

// CreateEvent inserts an event.
func (r *txRepo) CreateEvent(ctx context.Context, e *database.Event) error {
	err := r.tx.QueryRowContext(ctx, `
		INSERT INTO events (name, owner_id, starts_at, ends_at, location)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.Name, e.OwnerID, e.StartsAt, e.EndsAt, e.Location).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return mapError(err, "insert event")
	}
	return nil
}

// DeleteEvent removes the event row.
func (r *txRepo) DeleteEvent(ctx context.Context, id int64) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return mapError(err, fmt.Sprintf("delete event %d", id))
	}
	return nil
}

// ListEventsForMember returns the events a member belongs to.
func (r *txRepo) ListEventsForMember(ctx context.Context, memberID int64) ([]database.Event, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT e.id, e.name, e.owner_id, e.starts_at, e.ends_at, e.location, e.created_at
		FROM events e
		JOIN event_members em ON em.event_id = e.id
		WHERE em.member_id = $1
		ORDER BY e.id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("query events for member: %w", err)
	}
	defer rows.Close()

	var events []database.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// AddMembership inserts a member/event pair.
func (r *txRepo) AddMembership(ctx context.Context, memberID, eventID int64) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO event_members (member_id, event_id) VALUES ($1, $2)`, memberID, eventID)
	if err != nil {
		return mapError(err, "insert membership")
	}
	return nil
}

// RemoveMembership deletes a member/event pair.
func (r *txRepo) RemoveMembership(ctx context.Context, memberID, eventID int64) (bool, error) {
	res, err := r.tx.ExecContext(ctx,
		`DELETE FROM event_members WHERE member_id = $1 AND event_id = $2`, memberID, eventID)
	if err != nil {
		return false, mapError(err, "delete membership")
	}
	n, err := rowsAffected(res, "delete membership")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasMembership reports whether the member belongs to the event.
func (r *txRepo) HasMembership(ctx context.Context, memberID, eventID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_members WHERE member_id = $1 AND event_id = $2)`,
		memberID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ListMemberIDs returns the member IDs of an event.
func (r *txRepo) ListMemberIDs(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT member_id FROM event_members WHERE event_id = $1 ORDER BY member_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query member ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member ids: %w", err)
	}
	return ids, nil
}

// ListEventMembers returns the members of an event.
func (r *txRepo) ListEventMembers(ctx context.Context, eventID int64) ([]database.Member, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT m.id, m.first_name, m.last_name, m.email, m.password_hash, m.embedding, m.created_at
		FROM members m
		JOIN event_members em ON em.member_id = m.id
		WHERE em.event_id = $1
		ORDER BY m.id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query event members: %w", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// DeleteMembershipsByEvent removes every membership of an event.
func (r *txRepo) DeleteMembershipsByEvent(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM event_members WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, mapError(err, "delete memberships")
	}
	return rowsAffected(res, "delete memberships")
}
