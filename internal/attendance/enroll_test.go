package attendance

import (
	"math"
	"testing"

	"github.com/kozaktomas/veriface/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll_StoresEmbeddingAndReportsLookAlikes(t *testing.T) {
	f := newFixture(t)
	twin := f.addMember("twin", []float32{1, 0.05, 0})
	f.addMember("other", []float32{0, 0, 1})
	require.NoError(t, f.svc.LoadIndex(f.ctx))

	alice := f.addMember("alice", nil)
	res, err := f.svc.Enroll(f.ctx, alice.ID, []float32{1, 0, 0})
	require.NoError(t, err)
	require.Len(t, res.LookAlikes, 1)
	assert.Equal(t, twin.ID, res.LookAlikes[0].MemberID)
	assert.Equal(t, "twin Test", res.LookAlikes[0].Name)

	err = f.store.WithReadTx(f.ctx, func(tx database.Tx) error {
		m, err := tx.GetMember(f.ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, m.Embedding)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.index.Count())
}

func TestEnroll_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		embedding []float32
	}{
		{"wrong dimension", []float32{1, 0}},
		{"zero vector", []float32{0, 0, 0}},
		{"NaN component", []float32{1, float32(math.NaN()), 0}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Enroll(f.ctx, f.owner.ID, tt.embedding)
			assert.ErrorIs(t, err, ErrInvalidEmbedding)
		})
	}

	_, err := f.svc.Enroll(f.ctx, 9999, []float32{1, 0, 0})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestEnroll_ThenCheckIn(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", nil)
	session := f.newSession()

	_, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{0, 1, 0}, 0.5)
	assert.ErrorIs(t, err, ErrNoEnrolledCandidates)

	_, err = f.svc.Enroll(f.ctx, alice.ID, []float32{0, 1, 0})
	require.NoError(t, err)

	res, err := f.svc.CheckInByEmbedding(f.ctx, session.ID, []float32{0, 1, 0}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res.MemberID)
}
