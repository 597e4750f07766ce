package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/kozaktomas/veriface/internal/database/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *mock.Store
	index   *database.MemberIndex
	svc     *Service
	owner   database.Member
	event   *database.Event
	members map[string]database.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mock.NewStore()
	index := database.NewMemberIndex()
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   store,
		index:   index,
		svc:     NewService(store, index, Options{EmbeddingDim: 3, Now: func() time.Time { return testNow }}),
		members: make(map[string]database.Member),
	}
	f.owner = f.addMember("owner", nil)

	event, err := f.svc.CreateEvent(f.ctx, f.owner.ID, EventInput{Name: "Algorithms 101"})
	require.NoError(t, err)
	f.event = event
	return f
}

// addMember creates a member that is not yet part of any event.
func (f *fixture) addMember(name string, embedding []float32) database.Member {
	f.t.Helper()
	m := database.Member{FirstName: name, LastName: "Test", Email: name + "@example.com", Embedding: embedding}
	err := f.store.WithTx(f.ctx, func(tx database.Tx) error {
		return tx.CreateMember(f.ctx, &m)
	})
	require.NoError(f.t, err)
	f.members[name] = m
	return m
}

// join creates a member and adds them to the fixture event.
func (f *fixture) join(name string, embedding []float32) database.Member {
	f.t.Helper()
	m := f.addMember(name, embedding)
	require.NoError(f.t, f.svc.AddMember(f.ctx, f.owner.ID, f.event.ID, m.ID))
	return m
}

func (f *fixture) newSession() *database.Session {
	f.t.Helper()
	s, err := f.svc.CreateSession(f.ctx, f.owner.ID, f.event.ID, SessionInput{})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) roster(sessionID int64) []database.Attendance {
	f.t.Helper()
	var rows []database.Attendance
	err := f.store.WithReadTx(f.ctx, func(tx database.Tx) error {
		var err error
		rows, err = tx.ListAttendance(f.ctx, sessionID)
		return err
	})
	require.NoError(f.t, err)
	return rows
}

func (f *fixture) row(memberID, sessionID int64) database.Attendance {
	f.t.Helper()
	for _, a := range f.roster(sessionID) {
		if a.MemberID == memberID {
			return a
		}
	}
	f.t.Fatalf("no attendance row for member %d in session %d", memberID, sessionID)
	return database.Attendance{}
}
