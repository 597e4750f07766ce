package database

import (
	"testing"
)

func TestMemberIndex_LookAlikes(t *testing.T) {
	idx := NewMemberIndex()
	idx.BuildFromMembers([]Member{
		{ID: 1, Embedding: []float32{1, 0, 0}},
		{ID: 2, Embedding: []float32{0.99, 0.1, 0}},
		{ID: 3, Embedding: []float32{0, 1, 0}},
		{ID: 4}, // not enrolled
	})

	if idx.Count() != 3 {
		t.Fatalf("expected 3 indexed members, got %d", idx.Count())
	}

	got := idx.LookAlikes([]float32{1, 0, 0}, 1, 5, 0.9)
	if len(got) != 1 {
		t.Fatalf("expected 1 look-alike, got %d: %+v", len(got), got)
	}
	if got[0].MemberID != 2 {
		t.Errorf("expected member 2, got %d", got[0].MemberID)
	}
}

func TestMemberIndex_PutReplaces(t *testing.T) {
	idx := NewMemberIndex()
	if err := idx.Put(1, []float32{1, 0}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Put(2, []float32{0, 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Put(1, []float32{0, 1}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if idx.Count() != 2 {
		t.Errorf("expected 2 members after replace, got %d", idx.Count())
	}

	got := idx.LookAlikes([]float32{0, 1}, 2, 5, 0.9)
	if len(got) != 1 || got[0].MemberID != 1 {
		t.Errorf("expected re-enrolled member 1 as look-alike, got %+v", got)
	}
}

func TestMemberIndex_RejectsZeroVector(t *testing.T) {
	idx := NewMemberIndex()
	if err := idx.Put(1, []float32{0, 0}); err == nil {
		t.Error("expected error for zero embedding")
	}
	if got := idx.LookAlikes([]float32{1, 0}, 0, 5, 0); got != nil {
		t.Errorf("expected no results from empty index, got %+v", got)
	}
}

func TestGraphDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"same direction", []float32{2, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector sorts last", []float32{0, 0}, []float32{1, 0}, 2},
		{"dimension mismatch sorts last", []float32{1, 0, 0}, []float32{1, 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graphDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("graphDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
