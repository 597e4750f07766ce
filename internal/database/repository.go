package database

import (
	"context"
)

// Store runs units of work against the backing store. Every multi-step
// operation runs inside one call so concurrent readers never observe a
// partial state. fn's error (or panic) rolls the transaction back.
type Store interface {
	// WithTx runs fn inside a read-write transaction
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// WithReadTx runs fn inside a read-only transaction
	WithReadTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the unit-of-work handle passed explicitly to every repository call.
type Tx interface {
	MemberRepository
	EventRepository
	MembershipRepository
	SessionRepository
	AttendanceRepository
}

// MemberRepository provides access to members and their reference embeddings
type MemberRepository interface {
	// GetMember returns ErrNotFound if the member does not exist
	GetMember(ctx context.Context, id int64) (*Member, error)
	// GetMemberByEmail looks up a member by lowercased email, ErrNotFound if absent
	GetMemberByEmail(ctx context.Context, email string) (*Member, error)
	// GetMembers returns the members that exist among ids, keyed by ID
	GetMembers(ctx context.Context, ids []int64) (map[int64]*Member, error)
	// CreateMember inserts a member and sets its ID; ErrConflict on duplicate email
	CreateMember(ctx context.Context, m *Member) error
	// SetMemberEmbedding replaces the reference embedding, ErrNotFound if the member does not exist
	SetMemberEmbedding(ctx context.Context, id int64, embedding []float32) error
	// ListEnrolledMembers returns every member with a reference embedding
	ListEnrolledMembers(ctx context.Context) ([]Member, error)
}

// EventRepository provides access to events
type EventRepository interface {
	// GetEvent returns ErrNotFound if the event does not exist
	GetEvent(ctx context.Context, id int64) (*Event, error)
	// LockEvent is GetEvent that also locks the event row until the transaction ends
	LockEvent(ctx context.Context, id int64) (*Event, error)
	// GetEventByName returns ErrNotFound if no event has that name
	GetEventByName(ctx context.Context, name string) (*Event, error)
	// CreateEvent inserts an event and sets its ID; ErrConflict on duplicate name
	CreateEvent(ctx context.Context, e *Event) error
	// DeleteEvent removes the event row only
	DeleteEvent(ctx context.Context, id int64) error
	// ListEventsForMember returns the events the member belongs to, ordered by ID
	ListEventsForMember(ctx context.Context, memberID int64) ([]Event, error)
}

// MembershipRepository provides access to the member/event join table
type MembershipRepository interface {
	// AddMembership inserts the pair; ErrConflict if it already exists
	AddMembership(ctx context.Context, memberID, eventID int64) error
	// RemoveMembership deletes the pair and reports whether it existed
	RemoveMembership(ctx context.Context, memberID, eventID int64) (bool, error)
	// HasMembership reports whether the pair exists
	HasMembership(ctx context.Context, memberID, eventID int64) (bool, error)
	// ListMemberIDs returns the member IDs of an event in ascending order
	ListMemberIDs(ctx context.Context, eventID int64) ([]int64, error)
	// ListEventMembers returns the members of an event ordered by ID
	ListEventMembers(ctx context.Context, eventID int64) ([]Member, error)
	// DeleteMembershipsByEvent removes every membership of an event
	DeleteMembershipsByEvent(ctx context.Context, eventID int64) (int64, error)
}

// SessionRepository provides access to event sessions
type SessionRepository interface {
	// CreateSession inserts a session with the given sequence number and sets its ID
	CreateSession(ctx context.Context, s *Session) error
	// MaxSequenceNumber returns the highest sequence number of an event, 0 if it has no sessions
	MaxSequenceNumber(ctx context.Context, eventID int64) (int, error)
	// GetSession returns ErrNotFound if the session does not exist
	GetSession(ctx context.Context, id int64) (*Session, error)
	// ListSessions returns the sessions of an event ordered by sequence number
	ListSessions(ctx context.Context, eventID int64) ([]Session, error)
	// DeleteSession removes the session row only
	DeleteSession(ctx context.Context, id int64) error
	// DeleteSessionsByEvent removes every session row of an event
	DeleteSessionsByEvent(ctx context.Context, eventID int64) (int64, error)
}

// AttendanceRepository provides access to the attendance ledger
type AttendanceRepository interface {
	// ListAttendance returns the roster of a session ordered by member ID, then row ID
	ListAttendance(ctx context.Context, sessionID int64) ([]Attendance, error)
	// ListRoster returns the roster joined with member names, same order as ListAttendance
	ListRoster(ctx context.Context, sessionID int64) ([]RosterEntry, error)
	// GetAttendance returns ErrNotFound if the member has no row in the session
	GetAttendance(ctx context.Context, memberID, sessionID int64) (*Attendance, error)
	// InsertAttendance inserts a row and sets its ID; ErrConflict if the pair already has one
	InsertAttendance(ctx context.Context, a *Attendance) error
	// UpdateAttendance writes status and timestamps of an existing row by ID
	UpdateAttendance(ctx context.Context, a *Attendance) error
	// DeleteAttendanceBySession removes the roster of a session
	DeleteAttendanceBySession(ctx context.Context, sessionID int64) (int64, error)
	// CountAttendanceByStatus groups a session's rows by status, skipping excludeMemberID when non-zero
	CountAttendanceByStatus(ctx context.Context, sessionID, excludeMemberID int64) (StatusCounts, error)
}
