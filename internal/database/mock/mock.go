// Package mock provides an in-memory implementation of database.Store for testing.
//
// Each unit of work runs against a private copy of the state which replaces
// the shared state only when fn returns nil, so rollback behaves like the
// PostgreSQL store. Foreign keys are enforced without cascades.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
)

// ErrForeignKey is returned when a write would leave a dangling reference.
var ErrForeignKey = errors.New("foreign key violation")

type membershipKey struct {
	memberID int64
	eventID  int64
}

type state struct {
	members     map[int64]database.Member
	events      map[int64]database.Event
	memberships map[membershipKey]time.Time
	sessions    map[int64]database.Session
	attendance  map[int64]database.Attendance
	lastID      int64
}

func newState() *state {
	return &state{
		members:     make(map[int64]database.Member),
		events:      make(map[int64]database.Event),
		memberships: make(map[membershipKey]time.Time),
		sessions:    make(map[int64]database.Session),
		attendance:  make(map[int64]database.Attendance),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.lastID = s.lastID
	for id, m := range s.members {
		m.Embedding = cloneVector(m.Embedding)
		c.members[id] = m
	}
	for id, e := range s.events {
		e.StartsAt = cloneTime(e.StartsAt)
		e.EndsAt = cloneTime(e.EndsAt)
		c.events[id] = e
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for id, sess := range s.sessions {
		sess.StartTime = cloneTime(sess.StartTime)
		sess.EndTime = cloneTime(sess.EndTime)
		c.sessions[id] = sess
	}
	for id, a := range s.attendance {
		c.attendance[id] = cloneAttendance(a)
	}
	return c
}

func (s *state) nextID() int64 {
	s.lastID++
	return s.lastID
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneAttendance(a database.Attendance) database.Attendance {
	a.CheckInTime = cloneTime(a.CheckInTime)
	a.CheckOutTime = cloneTime(a.CheckOutTime)
	return a
}

type failure struct {
	err   error
	nth   int // 0 fails every call, otherwise only the nth call
	calls int
}

// Store is an in-memory database.Store. Units of work are serialized.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time

	failMu   sync.Mutex
	failures map[string]*failure

	// CommitError is returned instead of committing a successful read-write unit of work
	CommitError error
}

var _ database.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state:    newState(),
		now:      time.Now,
		failures: make(map[string]*failure),
	}
}

// FailOn makes every call of the named repository method return err.
func (s *Store) FailOn(method string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[method] = &failure{err: err}
}

// FailOnCall makes only the nth (1-based) call of the named method return err.
func (s *Store) FailOnCall(method string, nth int, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[method] = &failure{err: err, nth: nth}
}

// ClearFailures removes all injected errors.
func (s *Store) ClearFailures() {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures = make(map[string]*failure)
}

func (s *Store) fail(method string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	f, ok := s.failures[method]
	if !ok {
		return nil
	}
	f.calls++
	if f.nth == 0 || f.calls == f.nth {
		return fmt.Errorf("%s: %w", method, f.err)
	}
	return nil
}

// WithTx runs fn against a copy of the state and keeps the copy if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{store: s, st: work}); err != nil {
		return err
	}
	if s.CommitError != nil {
		return s.CommitError
	}
	s.state = work
	return nil
}

// WithReadTx runs fn against a copy of the state that is always discarded.
func (s *Store) WithReadTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&tx{store: s, st: s.state.clone()})
}

// Counts returns the number of rows per table, for assertions in tests.
func (s *Store) Counts() (members, events, memberships, sessions, attendance int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	return len(st.members), len(st.events), len(st.memberships), len(st.sessions), len(st.attendance)
}

type tx struct {
	store *Store
	st    *state
}

var _ database.Tx = (*tx)(nil)

// GetMember retrieves a member by ID
func (t *tx) GetMember(_ context.Context, id int64) (*database.Member, error) {
	if err := t.store.fail("GetMember"); err != nil {
		return nil, err
	}
	m, ok := t.st.members[id]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", id, database.ErrNotFound)
	}
	m.Embedding = cloneVector(m.Embedding)
	return &m, nil
}

// GetMemberByEmail retrieves a member by case-insensitive email
func (t *tx) GetMemberByEmail(_ context.Context, email string) (*database.Member, error) {
	if err := t.store.fail("GetMemberByEmail"); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, m := range t.st.members {
		if m.Email == email {
			m.Embedding = cloneVector(m.Embedding)
			return &m, nil
		}
	}
	return nil, fmt.Errorf("member %q: %w", email, database.ErrNotFound)
}

// GetMembers retrieves the members that exist among ids
func (t *tx) GetMembers(_ context.Context, ids []int64) (map[int64]*database.Member, error) {
	if err := t.store.fail("GetMembers"); err != nil {
		return nil, err
	}
	result := make(map[int64]*database.Member, len(ids))
	for _, id := range ids {
		if m, ok := t.st.members[id]; ok {
			m.Embedding = cloneVector(m.Embedding)
			result[id] = &m
		}
	}
	return result, nil
}

// CreateMember inserts a member
func (t *tx) CreateMember(_ context.Context, m *database.Member) error {
	if err := t.store.fail("CreateMember"); err != nil {
		return err
	}
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	for _, existing := range t.st.members {
		if existing.Email == m.Email {
			return fmt.Errorf("member %q: %w", m.Email, database.ErrConflict)
		}
	}
	m.ID = t.st.nextID()
	m.CreatedAt = t.store.now()
	stored := *m
	stored.Embedding = cloneVector(m.Embedding)
	t.st.members[m.ID] = stored
	return nil
}

// SetMemberEmbedding replaces the reference embedding of a member
func (t *tx) SetMemberEmbedding(_ context.Context, id int64, embedding []float32) error {
	if err := t.store.fail("SetMemberEmbedding"); err != nil {
		return err
	}
	m, ok := t.st.members[id]
	if !ok {
		return fmt.Errorf("member %d: %w", id, database.ErrNotFound)
	}
	m.Embedding = cloneVector(embedding)
	t.st.members[id] = m
	return nil
}

// ListEnrolledMembers returns members with a reference embedding
func (t *tx) ListEnrolledMembers(_ context.Context) ([]database.Member, error) {
	if err := t.store.fail("ListEnrolledMembers"); err != nil {
		return nil, err
	}
	var result []database.Member
	for _, m := range t.st.members {
		if m.Enrolled() {
			m.Embedding = cloneVector(m.Embedding)
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetEvent retrieves an event by ID
func (t *tx) GetEvent(_ context.Context, id int64) (*database.Event, error) {
	if err := t.store.fail("GetEvent"); err != nil {
		return nil, err
	}
	e, ok := t.st.events[id]
	if !ok {
		return nil, fmt.Errorf("event %d: %w", id, database.ErrNotFound)
	}
	return &e, nil
}

// LockEvent retrieves an event; units of work are already serialized
func (t *tx) LockEvent(ctx context.Context, id int64) (*database.Event, error) {
	if err := t.store.fail("LockEvent"); err != nil {
		return nil, err
	}
	return t.GetEvent(ctx, id)
}

// GetEventByName retrieves an event by name
func (t *tx) GetEventByName(_ context.Context, name string) (*database.Event, error) {
	if err := t.store.fail("GetEventByName"); err != nil {
		return nil, err
	}
	for _, e := range t.st.events {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("event %q: %w", name, database.ErrNotFound)
}

// CreateEvent inserts an event
func (t *tx) CreateEvent(_ context.Context, e *database.Event) error {
	if err := t.store.fail("CreateEvent"); err != nil {
		return err
	}
	if _, ok := t.st.members[e.OwnerID]; !ok {
		return fmt.Errorf("event owner %d: %w", e.OwnerID, ErrForeignKey)
	}
	for _, existing := range t.st.events {
		if existing.Name == e.Name {
			return fmt.Errorf("event %q: %w", e.Name, database.ErrConflict)
		}
	}
	e.ID = t.st.nextID()
	e.CreatedAt = t.store.now()
	t.st.events[e.ID] = *e
	return nil
}

// DeleteEvent removes the event row, failing while dependents remain
func (t *tx) DeleteEvent(_ context.Context, id int64) error {
	if err := t.store.fail("DeleteEvent"); err != nil {
		return err
	}
	for k := range t.st.memberships {
		if k.eventID == id {
			return fmt.Errorf("delete event %d: membership remains: %w", id, ErrForeignKey)
		}
	}
	for _, s := range t.st.sessions {
		if s.EventID == id {
			return fmt.Errorf("delete event %d: session remains: %w", id, ErrForeignKey)
		}
	}
	delete(t.st.events, id)
	return nil
}

// ListEventsForMember returns the events a member belongs to
func (t *tx) ListEventsForMember(_ context.Context, memberID int64) ([]database.Event, error) {
	if err := t.store.fail("ListEventsForMember"); err != nil {
		return nil, err
	}
	var result []database.Event
	for k := range t.st.memberships {
		if k.memberID == memberID {
			result = append(result, t.st.events[k.eventID])
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AddMembership inserts a member/event pair
func (t *tx) AddMembership(_ context.Context, memberID, eventID int64) error {
	if err := t.store.fail("AddMembership"); err != nil {
		return err
	}
	if _, ok := t.st.members[memberID]; !ok {
		return fmt.Errorf("membership member %d: %w", memberID, ErrForeignKey)
	}
	if _, ok := t.st.events[eventID]; !ok {
		return fmt.Errorf("membership event %d: %w", eventID, ErrForeignKey)
	}
	key := membershipKey{memberID, eventID}
	if _, ok := t.st.memberships[key]; ok {
		return fmt.Errorf("membership %d/%d: %w", memberID, eventID, database.ErrConflict)
	}
	t.st.memberships[key] = t.store.now()
	return nil
}

// RemoveMembership deletes a member/event pair
func (t *tx) RemoveMembership(_ context.Context, memberID, eventID int64) (bool, error) {
	if err := t.store.fail("RemoveMembership"); err != nil {
		return false, err
	}
	key := membershipKey{memberID, eventID}
	if _, ok := t.st.memberships[key]; !ok {
		return false, nil
	}
	delete(t.st.memberships, key)
	return true, nil
}

// HasMembership reports whether the pair exists
func (t *tx) HasMembership(_ context.Context, memberID, eventID int64) (bool, error) {
	if err := t.store.fail("HasMembership"); err != nil {
		return false, err
	}
	_, ok := t.st.memberships[membershipKey{memberID, eventID}]
	return ok, nil
}

// ListMemberIDs returns the member IDs of an event in ascending order
func (t *tx) ListMemberIDs(_ context.Context, eventID int64) ([]int64, error) {
	if err := t.store.fail("ListMemberIDs"); err != nil {
		return nil, err
	}
	var ids []int64
	for k := range t.st.memberships {
		if k.eventID == eventID {
			ids = append(ids, k.memberID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ListEventMembers returns the members of an event ordered by ID
func (t *tx) ListEventMembers(ctx context.Context, eventID int64) ([]database.Member, error) {
	if err := t.store.fail("ListEventMembers"); err != nil {
		return nil, err
	}
	ids, err := t.ListMemberIDs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	result := make([]database.Member, 0, len(ids))
	for _, id := range ids {
		m := t.st.members[id]
		m.Embedding = cloneVector(m.Embedding)
		result = append(result, m)
	}
	return result, nil
}

// DeleteMembershipsByEvent removes every membership of an event
func (t *tx) DeleteMembershipsByEvent(_ context.Context, eventID int64) (int64, error) {
	if err := t.store.fail("DeleteMembershipsByEvent"); err != nil {
		return 0, err
	}
	var n int64
	for k := range t.st.memberships {
		if k.eventID == eventID {
			delete(t.st.memberships, k)
			n++
		}
	}
	return n, nil
}

// CreateSession inserts a session
func (t *tx) CreateSession(_ context.Context, s *database.Session) error {
	if err := t.store.fail("CreateSession"); err != nil {
		return err
	}
	if _, ok := t.st.events[s.EventID]; !ok {
		return fmt.Errorf("session event %d: %w", s.EventID, ErrForeignKey)
	}
	for _, existing := range t.st.sessions {
		if existing.EventID == s.EventID && existing.SequenceNumber == s.SequenceNumber {
			return fmt.Errorf("session %d/%d: %w", s.EventID, s.SequenceNumber, database.ErrConflict)
		}
	}
	s.ID = t.st.nextID()
	t.st.sessions[s.ID] = *s
	return nil
}

// MaxSequenceNumber returns the highest sequence number of an event
func (t *tx) MaxSequenceNumber(_ context.Context, eventID int64) (int, error) {
	if err := t.store.fail("MaxSequenceNumber"); err != nil {
		return 0, err
	}
	maxSeq := 0
	for _, s := range t.st.sessions {
		if s.EventID == eventID && s.SequenceNumber > maxSeq {
			maxSeq = s.SequenceNumber
		}
	}
	return maxSeq, nil
}

// GetSession retrieves a session by ID
func (t *tx) GetSession(_ context.Context, id int64) (*database.Session, error) {
	if err := t.store.fail("GetSession"); err != nil {
		return nil, err
	}
	s, ok := t.st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, database.ErrNotFound)
	}
	return &s, nil
}

// ListSessions returns the sessions of an event ordered by sequence number
func (t *tx) ListSessions(_ context.Context, eventID int64) ([]database.Session, error) {
	if err := t.store.fail("ListSessions"); err != nil {
		return nil, err
	}
	var result []database.Session
	for _, s := range t.st.sessions {
		if s.EventID == eventID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SequenceNumber < result[j].SequenceNumber })
	return result, nil
}

// DeleteSession removes a session row, failing while attendance remains
func (t *tx) DeleteSession(_ context.Context, id int64) error {
	if err := t.store.fail("DeleteSession"); err != nil {
		return err
	}
	for _, a := range t.st.attendance {
		if a.SessionID == id {
			return fmt.Errorf("delete session %d: attendance remains: %w", id, ErrForeignKey)
		}
	}
	delete(t.st.sessions, id)
	return nil
}

// DeleteSessionsByEvent removes every session of an event
func (t *tx) DeleteSessionsByEvent(ctx context.Context, eventID int64) (int64, error) {
	if err := t.store.fail("DeleteSessionsByEvent"); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range t.st.sessions {
		if s.EventID != eventID {
			continue
		}
		for _, a := range t.st.attendance {
			if a.SessionID == id {
				return n, fmt.Errorf("delete session %d: attendance remains: %w", id, ErrForeignKey)
			}
		}
		delete(t.st.sessions, id)
		n++
	}
	return n, nil
}

func (t *tx) sortedAttendance(sessionID int64) []database.Attendance {
	var result []database.Attendance
	for _, a := range t.st.attendance {
		if a.SessionID == sessionID {
			result = append(result, cloneAttendance(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MemberID != result[j].MemberID {
			return result[i].MemberID < result[j].MemberID
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ListAttendance returns the roster of a session ordered by member ID
func (t *tx) ListAttendance(_ context.Context, sessionID int64) ([]database.Attendance, error) {
	if err := t.store.fail("ListAttendance"); err != nil {
		return nil, err
	}
	return t.sortedAttendance(sessionID), nil
}

// ListRoster returns the roster joined with member names
func (t *tx) ListRoster(_ context.Context, sessionID int64) ([]database.RosterEntry, error) {
	if err := t.store.fail("ListRoster"); err != nil {
		return nil, err
	}
	rows := t.sortedAttendance(sessionID)
	result := make([]database.RosterEntry, 0, len(rows))
	for _, a := range rows {
		m := t.st.members[a.MemberID]
		result = append(result, database.RosterEntry{
			Attendance: a,
			FirstName:  m.FirstName,
			LastName:   m.LastName,
			Email:      m.Email,
		})
	}
	return result, nil
}

// GetAttendance returns the row of a member in a session
func (t *tx) GetAttendance(_ context.Context, memberID, sessionID int64) (*database.Attendance, error) {
	if err := t.store.fail("GetAttendance"); err != nil {
		return nil, err
	}
	for _, a := range t.st.attendance {
		if a.MemberID == memberID && a.SessionID == sessionID {
			c := cloneAttendance(a)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("attendance %d/%d: %w", memberID, sessionID, database.ErrNotFound)
}

// InsertAttendance inserts an attendance row
func (t *tx) InsertAttendance(_ context.Context, a *database.Attendance) error {
	if err := t.store.fail("InsertAttendance"); err != nil {
		return err
	}
	if !a.Status.Valid() {
		return fmt.Errorf("insert attendance: invalid status %d", uint8(a.Status))
	}
	if _, ok := t.st.members[a.MemberID]; !ok {
		return fmt.Errorf("attendance member %d: %w", a.MemberID, ErrForeignKey)
	}
	if _, ok := t.st.sessions[a.SessionID]; !ok {
		return fmt.Errorf("attendance session %d: %w", a.SessionID, ErrForeignKey)
	}
	for _, existing := range t.st.attendance {
		if existing.MemberID == a.MemberID && existing.SessionID == a.SessionID {
			return fmt.Errorf("attendance %d/%d: %w", a.MemberID, a.SessionID, database.ErrConflict)
		}
	}
	a.ID = t.st.nextID()
	t.st.attendance[a.ID] = cloneAttendance(*a)
	return nil
}

// UpdateAttendance writes status and timestamps of an existing row
func (t *tx) UpdateAttendance(_ context.Context, a *database.Attendance) error {
	if err := t.store.fail("UpdateAttendance"); err != nil {
		return err
	}
	if !a.Status.Valid() {
		return fmt.Errorf("update attendance: invalid status %d", uint8(a.Status))
	}
	existing, ok := t.st.attendance[a.ID]
	if !ok {
		return fmt.Errorf("attendance %d: %w", a.ID, database.ErrNotFound)
	}
	existing.Status = a.Status
	existing.CheckInTime = cloneTime(a.CheckInTime)
	existing.CheckOutTime = cloneTime(a.CheckOutTime)
	t.st.attendance[a.ID] = existing
	return nil
}

// DeleteAttendanceBySession removes the roster of a session
func (t *tx) DeleteAttendanceBySession(_ context.Context, sessionID int64) (int64, error) {
	if err := t.store.fail("DeleteAttendanceBySession"); err != nil {
		return 0, err
	}
	var n int64
	for id, a := range t.st.attendance {
		if a.SessionID == sessionID {
			delete(t.st.attendance, id)
			n++
		}
	}
	return n, nil
}

// CountAttendanceByStatus groups a session's rows by status
func (t *tx) CountAttendanceByStatus(_ context.Context, sessionID, excludeMemberID int64) (database.StatusCounts, error) {
	var counts database.StatusCounts
	if err := t.store.fail("CountAttendanceByStatus"); err != nil {
		return counts, err
	}
	for _, a := range t.st.attendance {
		if a.SessionID != sessionID {
			continue
		}
		if excludeMemberID != 0 && a.MemberID == excludeMemberID {
			continue
		}
		counts.Increment(a.Status)
	}
	return counts, nil
}
