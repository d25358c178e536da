// Package replace implements C3, the pluggable page-replacement policy
// of spec.md §4.3. It is modelled as a tagged variant over the five
// policy ids (design note "Policy pluggability": "a tagged variant over
// the five policies, selected at process/boot time; the fault handler
// dispatches on the tag rather than on virtual dispatch"), grounded on
// addrspace.cc's replace_with_next_physpage/get_random_physpage, with
// FIFO, LRU and LRU-clock implemented in full where the original leaves
// them as commented-out stubs.
package replace

import (
	"math/rand"
	"sync"

	"github.com/nachosvm/vm/frame"
	"github.com/nachosvm/vm/kernel"
)

// Policy selects victim frames under one of the five strategies named in
// spec.md §4.3's policy table.
type Policy struct {
	id kernel.PolicyID

	mu       sync.Mutex
	rng      *rand.Rand
	clockPtr int
}

// New constructs a Policy for the given id. Policy ids other than the
// five named in spec.md §4.3 are rejected at construction time rather
// than silently falling back to a default.
func New(id kernel.PolicyID) *Policy {
	if id < kernel.PolicyNone || id > kernel.PolicyLRUClock {
		kernel.Abort(kernel.NoFrameAvailable, "replace: unknown policy id %d", id)
	}
	return &Policy{id: id, rng: rand.New(rand.NewSource(1))}
}

// ID reports which policy this is.
func (p *Policy) ID() kernel.PolicyID { return p.id }

// SelectVictim picks a non-shared, owned frame to evict from t, per
// spec.md §4.3's per-policy victim rule. parentFrame is the optional hint
// described in §4.3 ("the frame currently mapping the faulting thread's
// parent PTE, if any") used to bias away from self-eviction during fork:
// random, FIFO and LRU drop parentFrame from their candidates whenever
// another candidate remains, and choose it only when it is the sole
// candidate; LRU-clock accepts and ignores it.
//
// PolicyNone never evicts: it always returns ok=false, since frames under
// that policy are bump-allocated only (spec.md §4.3's "never evict;
// frames are bump-allocated; ENOMEM if exhausted").
func (p *Policy) SelectVictim(t *frame.Table, parentFrame int) (victim int, ok bool) {
	switch p.id {
	case kernel.PolicyNone:
		return kernel.NONE, false
	case kernel.PolicyRandom:
		return p.selectRandom(t, parentFrame)
	case kernel.PolicyFIFO:
		return p.selectByStamp(t, parentFrame, func(e frame.Entry) uint64 { return e.FIFOStamp })
	case kernel.PolicyLRU:
		return p.selectByStamp(t, parentFrame, func(e frame.Entry) uint64 { return e.LRUStamp })
	case kernel.PolicyLRUClock:
		return p.selectClock(t)
	default:
		return kernel.NONE, false
	}
}

func (p *Policy) selectRandom(t *frame.Table, parentFrame int) (int, bool) {
	candidates := t.NonSharedOwned()
	if len(candidates) == 0 {
		return kernel.NONE, false
	}
	candidates = preferOthersOver(candidates, parentFrame)

	p.mu.Lock()
	defer p.mu.Unlock()
	return candidates[p.rng.Intn(len(candidates))], true
}

func (p *Policy) selectByStamp(t *frame.Table, parentFrame int, stampOf func(frame.Entry) uint64) (int, bool) {
	candidates := t.NonSharedOwned()
	if len(candidates) == 0 {
		return kernel.NONE, false
	}
	candidates = preferOthersOver(candidates, parentFrame)

	best := candidates[0]
	bestStamp := stampOf(t.Get(best))
	for _, c := range candidates[1:] {
		s := stampOf(t.Get(c))
		if s < bestStamp {
			best, bestStamp = c, s
		}
	}
	return best, true
}

// selectClock implements spec.md §4.3's policy id 4: "rotating pointer;
// skip frames with LRUClock=1, clearing the bit; evict the first with
// LRUClock=0".
func (p *Policy) selectClock(t *frame.Table) (int, bool) {
	size := t.Size()
	if size == 0 {
		return kernel.NONE, false
	}

	p.mu.Lock()
	start := p.clockPtr
	p.mu.Unlock()

	// Two full rotations are enough: the first clears every set clock bit,
	// so the second either finds a LRUClock=0 candidate or concludes there
	// is no non-shared owned frame at all.
	for i := 0; i < 2*size; i++ {
		p.mu.Lock()
		idx := p.clockPtr
		p.clockPtr = (p.clockPtr + 1) % size
		p.mu.Unlock()

		e := t.Get(idx)
		if e.Free() || e.Shared {
			continue
		}
		if e.LRUClock {
			t.MarkDirtyLRUClockCleared(idx)
			continue
		}
		return idx, true
	}

	_ = start
	return kernel.NONE, false
}

// preferOthersOver drops parentFrame from the candidate set when doing so
// still leaves at least one candidate, so fork-copy prefers not to evict
// the page it is actively copying from.
func preferOthersOver(candidates []int, parentFrame int) []int {
	if parentFrame == kernel.NONE {
		return candidates
	}
	filtered := candidates[:0:0]
	for _, c := range candidates {
		if c != parentFrame {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return candidates
	}
	return filtered
}
