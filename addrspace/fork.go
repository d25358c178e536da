package addrspace

import (
	"github.com/nachosvm/vm/kernel"
	"github.com/nachosvm/vm/noff"
)

// NewForkCopy implements spec.md §4.4's "Fork copy" path, grounded on
// addrspace.cc's `ProcessAddressSpace(ProcessAddressSpace *parentSpace)`
// constructor and its private helper `manageChildParentTable`. Every page
// is classified into one of three cases:
//
//   - shared: the child's PTE points at the same frame as the parent's,
//     and the frame table's owner is left as the parent (the frame is
//     never duplicated).
//   - valid, not shared: a fresh frame is claimed for the child and the
//     page's bytes are copied from the parent's frame; the parent frame's
//     replacement stamps are touched so eviction does not immediately
//     target a page that was just read.
//   - invalid: the child's PTE is also left invalid; nothing to copy.
func NewForkCopy(k *Kernel, parent *AddressSpace, childPID int, childThread any) (*AddressSpace, error) {
	child := &AddressSpace{
		ID:              kernel.NewSpaceID(),
		PID:             childPID,
		Thread:          childThread,
		NumVirtualPages: parent.NumVirtualPages,
		PageTable:       make([]PTE, parent.NumVirtualPages),
		// The entire backup buffer is copied, not just the slots backing
		// currently-invalid pages: a page can be evicted in the child
		// after diverging from the parent, so the child needs its own
		// independent copy of every backup slot up front.
		Backup:   append([]byte(nil), parent.Backup...),
		ExecPath: parent.ExecPath,
		// Inherited from the parent so a caller that wants to charge the
		// copy cost only has to set the hook once, on the process that
		// forks; every descendant then keeps reporting through it.
		OnPageCopied: parent.OnPageCopied,
		k:            k,
	}

	// Reopening the executable for the child is only worth doing when a
	// page can later be loaded from it: under demand paging, or when the
	// replacement policy can evict a page and force a reload. With
	// PolicyNone and eager loading every page the child will ever touch
	// was already loaded, so there is nothing left to demand-page.
	if parent.ExecPath != "" && (k.DemandPaging || k.Policy.ID() != kernel.PolicyNone) {
		if f, err := k.FS.Open(parent.ExecPath); err == nil {
			child.Executable = &noff.Executable{
				Path:   parent.ExecPath,
				File:   f,
				Header: parent.Executable.Header,
			}
		}
	}

	restore := k.Preempt.Disable()
	defer restore()

	mem := k.Sim.MainMemory()

	for vpn := range parent.PageTable {
		ppte := &parent.PageTable[vpn]
		cpte := &child.PageTable[vpn]
		cpte.VPN = vpn
		cpte.PPN = kernel.NONE

		// manageChildParentTable copies use/dirty/backedUp/readOnly in
		// every branch, not just the valid one: a page can be invalid in
		// the parent yet still have a backup slot worth inheriting (it
		// was evicted before the fork), and the child's first fault on
		// that vpn must see BackedUp so it restores from Backup instead
		// of reloading from the executable.
		cpte.ReadOnly = ppte.ReadOnly
		cpte.Dirty = ppte.Dirty
		cpte.Use = ppte.Use
		cpte.BackedUp = ppte.BackedUp

		switch {
		case !ppte.Valid:
			// invalid stays invalid; demand paging will service it later
			// for both parent and child independently.
		case ppte.Shared:
			cpte.Valid = true
			cpte.Shared = true
			cpte.PPN = ppte.PPN
		default:
			// Remember the parent's frame before acquiring: when no frame
			// is free the policy may evict this very page, which clears
			// ppte.PPN but leaves the bytes in place until refilled.
			parentFrame := ppte.PPN
			f, ok := k.acquireFrame(parentFrame)
			if !ok {
				kernel.Abort(kernel.NoFrameAvailable, "fork: no frame to copy page %d", vpn)
			}
			k.Frames.Claim(f, childPID, childThread, vpn, false, k.Stats.Ticks())

			src := mem[parentFrame*kernel.PageSize : (parentFrame+1)*kernel.PageSize]
			dst := mem[f*kernel.PageSize : (f+1)*kernel.PageSize]
			copy(dst, src)

			cpte.Valid = true
			cpte.PPN = f

			// Bias the parent frame away from eviction immediately after
			// being read, mirroring manageChildParentTable's stamp update
			// on both the new and the parent frame.
			if ppte.Valid {
				k.Frames.Touch(ppte.PPN, k.Stats.Ticks())
			}

			if parent.OnPageCopied != nil {
				parent.OnPageCopied(1000)
			}
		}
	}

	return child, nil
}
