package attendance

import (
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInByEmbedding_MarksBestMatchPresent(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", []float32{1, 0, 0})
	bob := f.join("bob", []float32{0, 1, 0})
	session := f.newSession()

	before := f.roster(session.ID)

	res, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{0.1, 0.95, 0}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, res.MemberID)
	assert.Equal(t, "bob Test", res.MemberName)
	assert.Equal(t, database.StatusPresent, res.Status)
	assert.Equal(t, testNow, res.CheckInTime)
	assert.Greater(t, res.Similarity, 0.9)

	after := f.roster(session.ID)
	require.Len(t, after, len(before))
	changed := 0
	for i := range after {
		if after[i].Status != before[i].Status {
			changed++
			assert.Equal(t, res.AttendanceID, after[i].ID)
		}
	}
	assert.Equal(t, 1, changed, "exactly one row must change")
	assert.Equal(t, database.StatusAbsent, f.row(alice.ID, session.ID).Status)
}

func TestCheckInByEmbedding_Errors(t *testing.T) {
	f := newFixture(t)
	f.join("alice", []float32{1, 0, 0})
	session := f.newSession()

	tests := []struct {
		name      string
		sessionID int64
		query     []float32
		threshold float64
		wantErr   error
	}{
		{"unknown session", 9999, []float32{1, 0, 0}, 0.5, database.ErrNotFound},
		{"threshold above one", session.ID, []float32{1, 0, 0}, 1.5, ErrInvalidThreshold},
		{"negative threshold", session.ID, []float32{1, 0, 0}, -0.1, ErrInvalidThreshold},
		{"NaN threshold", session.ID, []float32{1, 0, 0}, math.NaN(), ErrInvalidThreshold},
		{"empty query", session.ID, nil, 0.5, ErrInvalidEmbedding},
		{"below threshold", session.ID, []float32{0, 0, 1}, 0.5, ErrNotRecognized},
		{"zero query", session.ID, []float32{0, 0, 0}, 0.0, ErrNotRecognized},
		{"dimension mismatch", session.ID, []float32{1, 0}, 0.0, ErrNotRecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.roster(session.ID)
			_, err := f.svc.CheckInByEmbedding(f.ctx, tt.sessionID, tt.query, tt.threshold)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
			assert.Equal(t, before, f.roster(session.ID), "failed check-in must not mutate the roster")
		})
	}
}

func TestCheckInByEmbedding_NoEnrolledCandidates(t *testing.T) {
	f := newFixture(t)
	f.join("alice", nil)
	session := f.newSession()

	_, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{1, 0, 0}, 0.5)
	assert.ErrorIs(t, err, ErrNoEnrolledCandidates)
}

func TestCheckInByEmbedding_EmptyRoster(t *testing.T) {
	f := newFixture(t)
	session := f.newSession()

	// only the owner is on the roster and has no embedding
	_, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{1, 0, 0}, 0.5)
	assert.ErrorIs(t, err, ErrNoEnrolledCandidates)
}

func TestCheckInByEmbedding_OnlyZeroVectorsIsNotRecognized(t *testing.T) {
	f := newFixture(t)
	f.join("ghost", []float32{0, 0, 0})
	session := f.newSession()

	_, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrNotRecognized)
}

func TestCheckInByEmbedding_TieGoesToLowestMemberID(t *testing.T) {
	f := newFixture(t)
	first := f.join("first", []float32{1, 1, 0})
	f.join("second", []float32{2, 2, 0})
	session := f.newSession()

	res, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{1, 1, 0}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, res.MemberID)
}

func TestCheckInByEmbedding_Idempotent(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", []float32{1, 0, 0})
	session := f.newSession()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{1, 0, 0}, 0.5)
		require.NoError(t, err)
	}

	assert.Len(t, f.roster(session.ID), 2)
	assert.Equal(t, database.StatusPresent, f.row(alice.ID, session.ID).Status)
}

func TestCheckInFaces_IndependentResults(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", []float32{1, 0, 0})
	bob := f.join("bob", []float32{0, 1, 0})
	session := f.newSession()

	results := f.svc.CheckInFaces(f.ctx, session.ID, [][]float32{
		{1, 0, 0},
		{0, 0, 1}, // stranger
		{0, 1, 0},
	}, 0.5)

	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.Equal(t, alice.ID, results[0].Result.MemberID)
	assert.ErrorIs(t, results[1].Err, ErrNotRecognized)
	assert.Nil(t, results[1].Result)
	require.NoError(t, results[2].Err)
	assert.Equal(t, bob.ID, results[2].Result.MemberID)
	assert.Equal(t, 2, results[2].Index)
}
