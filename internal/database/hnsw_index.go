package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// Look-alike graph parameters. The index holds one node per enrolled member,
// so a small neighbor count already gives exact results at school scale.
const (
	graphMaxNeighbors     = 16
	graphEfSearch         = 64
	graphSearchMultiplier = 3 // candidates requested per wanted result
)

// LookAlike is an enrolled member whose reference embedding is close to a query.
type LookAlike struct {
	MemberID   int64
	Similarity float64
}

// MemberIndex wraps an HNSW graph over member reference embeddings. It is a
// cache rebuilt from the store at startup and updated on enrollment; the
// store stays the source of truth.
type MemberIndex struct {
	graph      *hnsw.Graph[int64]
	embeddings map[int64][]float32 // Maps member ID to its indexed embedding
	mu         sync.RWMutex
}

// NewMemberIndex creates a new empty index.
func NewMemberIndex() *MemberIndex {
	return &MemberIndex{
		embeddings: make(map[int64][]float32),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = graphMaxNeighbors
	g.Ml = 1.0 / float64(graphMaxNeighbors)
	g.EfSearch = graphEfSearch
	g.Distance = graphDistance
	return g
}

// graphDistance orders graph neighbors by the same cosine the matcher
// scores with, so unscorable vectors sort last at distance 2.
func graphDistance(a, b []float32) float32 {
	return float32(CosineDistance(a, b))
}

// BuildFromMembers replaces the index content with the enrolled members.
func (h *MemberIndex) BuildFromMembers(members []Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.embeddings = make(map[int64][]float32, len(members))

	for i := range members {
		m := &members[i]
		if !m.Enrolled() || IsZeroVector(m.Embedding) {
			continue
		}
		if h.graph == nil {
			h.graph = newGraph()
		}
		h.graph.Add(hnsw.MakeNode(m.ID, m.Embedding))
		h.embeddings[m.ID] = m.Embedding
	}
}

// Put adds or replaces the embedding of one member.
func (h *MemberIndex) Put(memberID int64, embedding []float32) error {
	if len(embedding) == 0 || IsZeroVector(embedding) {
		return errors.New("cannot index an empty or zero embedding")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph == nil {
		h.graph = newGraph()
	} else if _, ok := h.embeddings[memberID]; ok {
		h.graph.Delete(memberID)
	}

	h.graph.Add(hnsw.MakeNode(memberID, embedding))
	h.embeddings[memberID] = embedding
	return nil
}

// Count returns the number of indexed members.
func (h *MemberIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.embeddings)
}

// LookAlikes returns indexed members other than excludeID whose similarity to
// query is at least minSimilarity, most similar first.
func (h *MemberIndex) LookAlikes(query []float32, excludeID int64, limit int, minSimilarity float64) []LookAlike {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || limit <= 0 {
		return nil
	}

	// Request more candidates to ensure we have enough after filtering.
	k := max(limit*graphSearchMultiplier, limit+1)
	neighbors := h.graph.Search(query, k)

	results := make([]LookAlike, 0, limit)
	for _, n := range neighbors {
		if n.Key == excludeID {
			continue
		}
		emb, ok := h.embeddings[n.Key]
		if !ok {
			continue
		}
		// Recompute the exact similarity from the stored embedding.
		sim, ok := CosineSimilarity(query, emb)
		if !ok || sim < minSimilarity {
			continue
		}
		results = append(results, LookAlike{MemberID: n.Key, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].MemberID < results[j].MemberID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
