package attendance

import (
	"testing"
	"time"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIn_CreatesMissingRow(t *testing.T) {
	f := newFixture(t)
	session := f.newSession()
	outsider := f.addMember("outsider", nil)

	when := testNow.Add(-5 * time.Minute)
	row, err := f.svc.CheckIn(f.ctx, outsider.ID, session.ID, when)
	require.NoError(t, err)
	assert.Equal(t, database.StatusPresent, row.Status)
	require.NotNil(t, row.CheckInTime)
	assert.Equal(t, when, *row.CheckInTime)
	assert.Len(t, f.roster(session.ID), 2)
}

func TestCheckIn_IdempotentOnExistingRow(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", nil)
	session := f.newSession()

	_, err := f.svc.CheckIn(f.ctx, alice.ID, session.ID, testNow)
	require.NoError(t, err)
	later := testNow.Add(time.Minute)
	_, err = f.svc.CheckIn(f.ctx, alice.ID, session.ID, later)
	require.NoError(t, err)

	rows := f.roster(session.ID)
	assert.Len(t, rows, 2)
	row := f.row(alice.ID, session.ID)
	assert.Equal(t, database.StatusPresent, row.Status)
	assert.Equal(t, later, *row.CheckInTime)
}

func TestCheckIn_NotFound(t *testing.T) {
	f := newFixture(t)
	session := f.newSession()

	_, err := f.svc.CheckIn(f.ctx, f.owner.ID, 9999, testNow)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.CheckIn(f.ctx, 9999, session.ID, testNow)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	earlier := testNow.Add(-time.Hour)

	tests := []struct {
		name        string
		startStatus database.AttendanceStatus
		startIn     *time.Time
		status      database.AttendanceStatus
		wantIn      *time.Time
	}{
		{"absent to present stamps now", database.StatusAbsent, nil, database.StatusPresent, &testNow},
		{"absent to late stamps now", database.StatusAbsent, nil, database.StatusLate, &testNow},
		{"present to late keeps check-in", database.StatusPresent, &earlier, database.StatusLate, &earlier},
		{"present to absent clears check-in", database.StatusPresent, &earlier, database.StatusAbsent, nil},
		{"present to excused keeps check-in", database.StatusPresent, &earlier, database.StatusExcused, &earlier},
		{"absent to excused stays empty", database.StatusAbsent, nil, database.StatusExcused, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			alice := f.join("alice", nil)
			session := f.newSession()

			if tt.startStatus == database.StatusPresent {
				_, err := f.svc.CheckIn(f.ctx, alice.ID, session.ID, *tt.startIn)
				require.NoError(t, err)
			}

			row, err := f.svc.UpdateStatus(f.ctx, alice.ID, session.ID, tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.status, row.Status)

			stored := f.row(alice.ID, session.ID)
			assert.Equal(t, tt.status, stored.Status)
			if tt.wantIn == nil {
				assert.Nil(t, stored.CheckInTime)
			} else {
				require.NotNil(t, stored.CheckInTime)
				assert.Equal(t, *tt.wantIn, *stored.CheckInTime)
			}
		})
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newFixture(t)
	session := f.newSession()
	outsider := f.addMember("outsider", nil)

	_, err := f.svc.UpdateStatus(f.ctx, outsider.ID, session.ID, database.StatusPresent)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.UpdateStatus(f.ctx, f.owner.ID, session.ID, database.AttendanceStatus(0))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(f.ctx, f.owner.ID, session.ID, database.AttendanceStatus(42))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCheckOut(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", nil)
	session := f.newSession()

	_, err := f.svc.CheckOut(f.ctx, alice.ID, session.ID, testNow)
	assert.ErrorIs(t, err, ErrConflict, "absent member cannot check out")

	_, err = f.svc.CheckIn(f.ctx, alice.ID, session.ID, testNow)
	require.NoError(t, err)

	_, err = f.svc.CheckOut(f.ctx, alice.ID, session.ID, testNow.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrConflict, "check-out before check-in")

	out := testNow.Add(90 * time.Minute)
	row, err := f.svc.CheckOut(f.ctx, alice.ID, session.ID, out)
	require.NoError(t, err)
	require.NotNil(t, row.CheckOutTime)
	assert.Equal(t, out, *row.CheckOutTime)

	_, err = f.svc.CheckOut(f.ctx, 9999, session.ID, out)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
