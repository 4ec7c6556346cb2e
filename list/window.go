package list

import "fmt"

// Generation is one immutable, published version of an extension
// header list: an ordered sequence of slot indices into the
// context's Table. Generations are never mutated after Window.Publish
// returns them — callers may share a *Generation freely once
// published (spec.md §5 structural sharing).
type Generation struct {
	GenID uint8
	Slots []int // ordered indices into the owning Table
}

// Window is the sliding window of at most W past generations, keyed
// by gen_id, that the decompressor consults to apply insert/remove
// masks against a referenced prior generation (spec.md §3, §4.5).
//
// The eviction order is tracked the way a fixed-capacity MRU slot
// array tracks its own occupancy: a ring of the W most recent gen_ids
// plus a map for O(1) lookup, so Publish/Lookup never walk a list.
type Window struct {
	capacity int
	order    []uint8               // gen_ids in publish order, oldest first
	gens     map[uint8]*Generation // gen_id -> generation
}

// NewWindow returns an empty window holding at most capacity
// generations. capacity must be >= 2 per spec.md §6.
func NewWindow(capacity int) (*Window, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("list: window capacity must be >= 2, got %d", capacity)
	}
	return &Window{
		capacity: capacity,
		gens:     make(map[uint8]*Generation),
	}, nil
}

// Lookup returns the generation for gen_id, or false if it has aged
// out of the window or was never published.
func (w *Window) Lookup(genID uint8) (*Generation, bool) {
	g, ok := w.gens[genID]
	return g, ok
}

// Publish stores gen as the window's newest generation, evicting the
// oldest entry if the window is already at capacity.
func (w *Window) Publish(gen *Generation) {
	if old, exists := w.gens[gen.GenID]; exists {
		// Republishing the same gen_id (e.g. replaying IR) swaps in the
		// new generation without disturbing the eviction order; the old
		// *Generation itself is left as it was.
		_ = old
		w.gens[gen.GenID] = gen
		return
	}
	if len(w.order) >= w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.gens, oldest)
	}
	w.order = append(w.order, gen.GenID)
	w.gens[gen.GenID] = gen
}

// Len reports how many generations are currently held.
func (w *Window) Len() int {
	return len(w.order)
}
