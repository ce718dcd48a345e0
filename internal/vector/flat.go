// Package vector provides an exact (flat) vector index with tombstoning and
// snapshot/restore. Dataset sizes are thousands of records, so a brute-force
// scan is cheap and avoids the recall bugs of approximate structures.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrIndexNotReady means a search hit an index with no live entries.
var ErrIndexNotReady = errors.New("vector index has no live entries")

// ErrDimensionMismatch means a vector's length does not match the index dimension.
// The offending add/restore is aborted; vectors are never truncated or padded.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is a single nearest-neighbor search result.
type Hit struct {
	ID string
	// Distance is the squared L2 distance to the query.
	Distance float64
	// Similarity is cosine similarity recovered from Distance; valid because
	// all embedders normalize vectors to unit length (see CosineFromSquaredL2).
	Similarity float64
}

// FlatIndex stores vectors in a flat append-only slab. Updating an entity
// tombstones its old position and appends a new one; tombstones are physically
// removed only when a reindex builds a replacement index.
//
// One writer at a time (add/remove/restore); searches run concurrently under
// the read lock and are never blocked by queued writers already past Add's
// critical section.
type FlatIndex struct {
	mu         sync.RWMutex
	dimensions int
	generation uint64
	ids        []string
	vectors    [][]float32
	dead       []bool
	live       map[string]int // entity id -> live position; at most one per id
}

// Option configures a FlatIndex at construction time.
type Option func(*FlatIndex)

// WithGeneration sets the initial generation counter. Used by reindex to make
// the replacement index supersede the current one.
func WithGeneration(g uint64) Option {
	return func(x *FlatIndex) { x.generation = g }
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimensions int, opts ...Option) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	x := &FlatIndex{
		dimensions: dimensions,
		generation: 1,
		live:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Dimensions returns the configured vector dimension.
func (x *FlatIndex) Dimensions() int {
	return x.dimensions
}

// Generation returns the index generation counter.
func (x *FlatIndex) Generation() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.generation
}

// Size returns the number of live entries.
func (x *FlatIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.live)
}

// Positions returns the total number of slots including tombstones.
func (x *FlatIndex) Positions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Add appends a vector for id at the next free position. Any existing live
// entry for the same id is tombstoned first, so at most one live entry per id
// exists at any time.
func (x *FlatIndex) Add(id string, vec []float32) error {
	if len(vec) != x.dimensions {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vec), x.dimensions)
	}
	cp := make([]float32, x.dimensions)
	copy(cp, vec)

	x.mu.Lock()
	defer x.mu.Unlock()
	if pos, ok := x.live[id]; ok {
		x.dead[pos] = true
	}
	x.ids = append(x.ids, id)
	x.vectors = append(x.vectors, cp)
	x.dead = append(x.dead, false)
	x.live[id] = len(x.ids) - 1
	return nil
}

// Remove tombstones the live entry for id. Returns false if id has no live entry.
// The vector stays in the slab until the next reindex compacts it away.
func (x *FlatIndex) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	pos, ok := x.live[id]
	if !ok {
		return false
	}
	x.dead[pos] = true
	delete(x.live, id)
	return true
}

// Contains reports whether id has a live entry.
func (x *FlatIndex) Contains(id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.live[id]
	return ok
}

// Search scans all live positions and returns up to k hits ordered by ascending
// squared L2 distance. Ties are broken by ascending position (first-inserted
// wins) so results are deterministic. Returns ErrIndexNotReady when the index
// has no live entries; fewer than k live entries yield fewer than k hits.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), x.dimensions)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.live) == 0 {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		return nil, nil
	}

	type scored struct {
		pos  int
		dist float64
	}
	candidates := make([]scored, 0, len(x.live))
	for pos, vec := range x.vectors {
		if x.dead[pos] {
			continue
		}
		candidates = append(candidates, scored{pos: pos, dist: SquaredL2(query, vec)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].pos < candidates[j].pos
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		c := candidates[i]
		hits[i] = Hit{
			ID:         x.ids[c.pos],
			Distance:   c.dist,
			Similarity: CosineFromSquaredL2(c.dist),
		}
	}
	return hits, nil
}

// Snapshot returns an immutable copy of the live entries in position order.
func (x *FlatIndex) Snapshot() *Snapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s := &Snapshot{
		Dimensions: x.dimensions,
		Generation: x.generation,
		IDs:        make([]string, 0, len(x.live)),
		Vectors:    make([][]float32, 0, len(x.live)),
	}
	for pos, id := range x.ids {
		if x.dead[pos] {
			continue
		}
		vec := make([]float32, x.dimensions)
		copy(vec, x.vectors[pos])
		s.IDs = append(s.IDs, id)
		s.Vectors = append(s.Vectors, vec)
	}
	return s
}

// Restore atomically replaces the index contents with the snapshot and bumps
// the generation past both the current one and the snapshot's. Dimensions must
// match; on error the index is unchanged.
func (x *FlatIndex) Restore(s *Snapshot) error {
	if s.Dimensions != x.dimensions {
		return fmt.Errorf("%w: snapshot has %d, index expects %d", ErrDimensionMismatch, s.Dimensions, x.dimensions)
	}
	ids := make([]string, 0, len(s.IDs))
	vectors := make([][]float32, 0, len(s.IDs))
	dead := make([]bool, 0, len(s.IDs))
	live := make(map[string]int, len(s.IDs))
	for i, id := range s.IDs {
		if len(s.Vectors[i]) != x.dimensions {
			return fmt.Errorf("%w: snapshot record %d has %d, index expects %d", ErrDimensionMismatch, i, len(s.Vectors[i]), x.dimensions)
		}
		vec := make([]float32, x.dimensions)
		copy(vec, s.Vectors[i])
		if pos, ok := live[id]; ok {
			dead[pos] = true
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
		dead = append(dead, false)
		live[id] = len(ids) - 1
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	gen := x.generation
	if s.Generation > gen {
		gen = s.Generation
	}
	x.generation = gen + 1
	x.ids = ids
	x.vectors = vectors
	x.dead = dead
	x.live = live
	return nil
}
