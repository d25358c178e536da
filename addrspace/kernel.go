package addrspace

import (
	"github.com/nachosvm/vm/frame"
	"github.com/nachosvm/vm/kernel"
	"github.com/nachosvm/vm/replace"
)

// Kernel bundles the collaborators every AddressSpace operation needs:
// the frame table, the replacement policy, the out-of-scope simulator /
// file system / thread table contracts, and the statistics sink. This is
// design note "Global mutable state"'s explicit context threaded through
// operations, in place of ambient package-level singletons.
type Kernel struct {
	Frames  *frame.Table
	Policy  *replace.Policy
	Sim     kernel.Simulator
	FS      kernel.FileSystem
	Threads kernel.ThreadTable
	Stats   kernel.Stats
	Preempt *kernel.Preemption

	// DemandPaging selects between spec.md §4.4's two load-from-file
	// branches: eager allocation when false, lazy fault-driven
	// population when true.
	DemandPaging bool
}

// NewKernel constructs a Kernel from its collaborators, sizing the frame
// table and replacement policy from cfg.
func NewKernel(cfg kernel.BootConfig, sim kernel.Simulator, fs kernel.FileSystem, threads kernel.ThreadTable, stats kernel.Stats, demandPaging bool) *Kernel {
	return &Kernel{
		Frames:       frame.New(cfg.NumPhysFrames, cfg.Policy == kernel.PolicyNone),
		Policy:       replace.New(cfg.Policy),
		Sim:          sim,
		FS:           fs,
		Threads:      threads,
		Stats:        stats,
		Preempt:      kernel.NewPreemption(),
		DemandPaging: demandPaging,
	}
}

// acquireFrame finds or frees a physical frame, evicting a victim through
// the replacement policy when the frame table has nothing free, per
// spec.md §4.3's "Selecting a victim" procedure. parentHint is the
// optional bias frame passed through to the policy (spec.md §4.3);
// pass kernel.NONE when there is no parent page to protect.
//
// Callers must already hold k.Preempt disabled (spec.md §5).
func (k *Kernel) acquireFrame(parentHint int) (int, bool) {
	if f, ok := k.Frames.Acquire(); ok {
		return f, true
	}

	victim, ok := k.Policy.SelectVictim(k.Frames, parentHint)
	if !ok {
		return kernel.NONE, false
	}

	k.evict(victim)

	return k.Frames.Acquire()
}

// evict implements spec.md §4.3 steps 1-4: refuse a shared frame, back up
// its content if dirty, invalidate the owning PTE, and release the frame
// table entry. Step 5 (returning the frame to be re-claimed) is left to
// the caller via the subsequent Frames.Acquire in acquireFrame.
func (k *Kernel) evict(victim int) {
	e := k.Frames.Get(victim)
	if e.Free() {
		kernel.Abort(kernel.NoFrameAvailable, "evict: frame %d has no owner", victim)
	}
	if e.Shared {
		kernel.Abort(kernel.EvictionOfShared, "replacement policy selected shared frame %d", victim)
	}

	owner, ok := k.Threads.ByPID(e.OwnerPID)
	if !ok {
		kernel.Abort(kernel.NoFrameAvailable, "evict: frame %d owner pid %d not in thread table", victim, e.OwnerPID)
	}
	ownerSpace, ok := owner.Space.(*AddressSpace)
	if !ok {
		kernel.Abort(kernel.NoFrameAvailable, "evict: frame %d owner pid %d has no address space", victim, e.OwnerPID)
	}

	pte := &ownerSpace.PageTable[e.OwnerVPN]
	if pte.Dirty && !pte.Shared {
		mem := k.Sim.MainMemory()
		src := mem[victim*kernel.PageSize : (victim+1)*kernel.PageSize]
		dst := ownerSpace.Backup[e.OwnerVPN*kernel.PageSize : (e.OwnerVPN+1)*kernel.PageSize]
		copy(dst, src)
		pte.BackedUp = true
	}

	pte.Valid = false
	pte.PPN = kernel.NONE

	k.Frames.Release(victim)
}
