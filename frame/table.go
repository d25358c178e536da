// Package frame implements C2, the global frame table: the single
// process-wide ownership map over physical frames described in
// spec.md §3 and §4.2. It is grounded on akita's mem/vm/pagetable.go
// (a mutex-guarded lookup structure) adapted from that file's per-pid
// map-of-linked-lists into the flat, frame-indexed array spec.md's data
// model calls for, plus the parallel bookkeeping arrays
// (physpage_owner/pid_of_physpage/vpn_of_physpage/physpage_shared/
// physpage_FIFO/physpage_LRU/physpage_LRUclock) from
// original_source/nachos/code/userprog/addrspace.cc.
package frame

import (
	"sync"

	"github.com/nachosvm/vm/kernel"
)

// Entry is the frame table's back-pointer record for one physical frame,
// per spec.md §3's FrameTable fields.
type Entry struct {
	OwnerPID    int
	OwnerThread any
	OwnerVPN    int
	Shared      bool
	FIFOStamp   uint64
	LRUStamp    uint64
	// LRUClock is the "use" bit the LRU-clock policy rotates through and
	// clears, per spec.md §4.3's policy id 4.
	LRUClock bool
}

func freeEntry() Entry {
	return Entry{OwnerPID: kernel.NONE, OwnerVPN: kernel.NONE}
}

// Free reports whether this entry has no owner (invariant 6, spec.md §3).
func (e Entry) Free() bool { return e.OwnerPID == kernel.NONE }

// Table is the global frame table. Every operation that mutates it must
// be called with the caller's preemption guard held disabled
// (spec.md §4.2, §5); Table additionally serializes with an internal
// mutex so a misbehaving caller cannot corrupt bookkeeping, mirroring the
// belt-and-suspenders locking in akita's pageTableImpl.
type Table struct {
	mu sync.Mutex

	entries []Entry

	// bumpOnly mirrors spec.md §4.2's "when replacement is disabled, the
	// free scan is replaced by a bump counter". It is set once at
	// construction from the chosen PolicyID and never toggled, matching
	// design note 3's preserved-as-is bump behaviour.
	bumpOnly            bool
	numFramesAllocated int
}

// New creates a Table of the given size. bumpOnly should be true iff the
// chosen replacement policy is kernel.PolicyNone.
func New(size int, bumpOnly bool) *Table {
	entries := make([]Entry, size)
	for i := range entries {
		entries[i] = freeEntry()
	}
	return &Table{entries: entries, bumpOnly: bumpOnly}
}

// Size returns NumPhysFrames for this table.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// NumFramesAllocated returns the bump high-water mark (invariant 5,
// spec.md §3). It only advances in bump-only mode (PolicyNone); under
// the free-scan policies it stays 0.
func (t *Table) NumFramesAllocated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numFramesAllocated
}

// FindFree returns the first frame with no owner, per spec.md §4.2's
// `findFree() -> frame | NONE`.
func (t *Table) FindFree() (frame int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findFreeLocked()
}

func (t *Table) findFreeLocked() (int, bool) {
	for i, e := range t.entries {
		if e.Free() {
			return i, true
		}
	}
	return kernel.NONE, false
}

// Acquire returns a fresh, unowned frame index without claiming it,
// choosing between the bump counter and the free scan the way
// spec.md §4.2 describes: "When replacement is disabled, the free scan
// is replaced by a bump counter numFramesAllocated++". Under any other
// policy the caller is responsible for invoking the replacement policy
// and Release-ing a victim before calling Acquire again.
func (t *Table) Acquire() (frame int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bumpOnly {
		if t.numFramesAllocated >= len(t.entries) {
			return kernel.NONE, false
		}
		f := t.numFramesAllocated
		t.numFramesAllocated++
		return f, true
	}

	return t.findFreeLocked()
}

// Claim records ownership of a previously-free frame f, asserting that it
// really was free first (spec.md §4.2's `claim` precondition), and
// stamps it with the current virtual time for the FIFO/LRU policies.
func (t *Table) Claim(f, pid int, thread any, vpn int, shared bool, now uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.entries[f].Free() {
		kernel.Abort(kernel.NoFrameAvailable, "claim: frame %d is not free (owned by pid %d)", f, t.entries[f].OwnerPID)
	}

	t.entries[f] = Entry{
		OwnerPID:    pid,
		OwnerThread: thread,
		OwnerVPN:    vpn,
		Shared:      shared,
		FIFOStamp:   now,
		LRUStamp:    now,
		LRUClock:    true,
	}
}

// Release clears ownership of frame f without touching the backing
// bytes, per spec.md §4.2's `release`.
func (t *Table) Release(f int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[f] = freeEntry()
}

// Get returns a copy of frame f's current entry.
func (t *Table) Get(f int) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[f]
}

// Touch updates the FIFO/LRU stamps and sets the LRU-clock bit for frame
// f without changing ownership, used when a page is accessed again or
// when a fork needs to bias the parent frame away from eviction
// (spec.md §4.4's fork-copy step: "update replacement stamps (both on the
// new frame and the parent frame)").
func (t *Table) Touch(f int, now uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[f].Free() {
		return
	}
	t.entries[f].FIFOStamp = now
	t.entries[f].LRUStamp = now
	t.entries[f].LRUClock = true
}

// MarkDirtyLRUClockCleared implements the LRU-clock policy's "skip frames
// with LRUClock=1, clearing the bit" step (spec.md §4.3, policy id 4)
// without selecting f as a victim.
func (t *Table) MarkDirtyLRUClockCleared(f int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[f].LRUClock = false
}

// NonSharedOwned returns the indices of every frame with an owner that is
// not part of a shared region, the candidate pool every replacement
// policy other than "none" chooses from.
func (t *Table) NonSharedOwned() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []int
	for i, e := range t.entries {
		if !e.Free() && !e.Shared {
			out = append(out, i)
		}
	}
	return out
}

// OwnedCount returns the number of frames with a non-NONE owner —
// testable property 2 of spec.md §8 is phrased directly in terms of this
// count.
func (t *Table) OwnedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.entries {
		if !e.Free() {
			n++
		}
	}
	return n
}
