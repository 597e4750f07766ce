package attendance

import (
	"testing"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession_SeedsRoster(t *testing.T) {
	f := newFixture(t)
	f.join("alice", nil)
	f.join("bob", nil)

	session := f.newSession()
	rows := f.roster(session.ID)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, database.StatusAbsent, r.Status)
		assert.Nil(t, r.CheckInTime)
	}
}

func TestSeedAttendance_OnlyMissingMembers(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", nil)
	session := f.newSession()

	_, err := f.svc.CheckIn(f.ctx, alice.ID, session.ID, testNow)
	require.NoError(t, err)

	// a member who joined outside AddMember has no row yet
	late := f.addMember("late", nil)
	err = f.store.WithTx(f.ctx, func(tx database.Tx) error {
		return tx.AddMembership(f.ctx, late.ID, f.event.ID)
	})
	require.NoError(t, err)

	created, err := f.svc.SeedAttendance(f.ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, late.ID, created[0].MemberID)
	assert.Equal(t, database.StatusAbsent, created[0].Status)

	// the checked-in member was not reset
	assert.Equal(t, database.StatusPresent, f.row(alice.ID, session.ID).Status)

	again, err := f.svc.SeedAttendance(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSeedAttendance_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SeedAttendance(f.ctx, 9999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSeedAttendance_FailureRollsBack(t *testing.T) {
	f := newFixture(t)
	session := f.newSession()
	for _, name := range []string{"a", "b", "c"} {
		m := f.addMember(name, nil)
		require.NoError(t, f.store.WithTx(f.ctx, func(tx database.Tx) error {
			return tx.AddMembership(f.ctx, m.ID, f.event.ID)
		}))
	}

	f.store.FailOnCall("InsertAttendance", 2, assert.AnError)
	_, err := f.svc.SeedAttendance(f.ctx, session.ID)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, f.roster(session.ID), 1, "partial seed must be rolled back")
}

func TestBackfillAttendance(t *testing.T) {
	f := newFixture(t)
	s1 := f.newSession()
	s2 := f.newSession()

	for _, name := range []string{"x", "y"} {
		m := f.addMember(name, nil)
		require.NoError(t, f.store.WithTx(f.ctx, func(tx database.Tx) error {
			return tx.AddMembership(f.ctx, m.ID, f.event.ID)
		}))
	}

	n, err := f.svc.BackfillAttendance(f.ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, f.roster(s1.ID), 3)
	assert.Len(t, f.roster(s2.ID), 3)

	_, err = f.svc.BackfillAttendance(f.ctx, 9999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestProperty_SeedingIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("roster size equals member count however often seeding runs", prop.ForAll(
		func(members, repeats int) bool {
			f := newFixture(t)
			for i := 0; i < members; i++ {
				f.join(string(rune('a'+i)), nil)
			}
			session := f.newSession()
			for i := 0; i < repeats; i++ {
				if _, err := f.svc.SeedAttendance(f.ctx, session.ID); err != nil {
					return false
				}
			}
			rows := f.roster(session.ID)
			seen := make(map[int64]bool)
			for _, r := range rows {
				if seen[r.MemberID] {
					return false
				}
				seen[r.MemberID] = true
			}
			return len(rows) == members+1
		},
		gen.IntRange(0, 8), gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
