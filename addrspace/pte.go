// Package addrspace implements C4 (the per-process address space), C5
// (the demand-paging fault handler), C6 (CPU register bootstrap) and C7
// (context-switch hooks) of spec.md §4.4-§4.7. It is grounded on
// original_source/nachos/code/userprog/addrspace.cc's three
// ProcessAddressSpace constructors, cleanPages, AllocateSharedMemory,
// DemandPageAllocation, InitUserModeCPURegisters and
// SaveContextOnSwitch/RestoreContextOnSwitch, using the frame table
// (package frame) and replacement policy (package replace) rather than
// the original's free-standing globals and functions.
package addrspace

import "github.com/nachosvm/vm/kernel"

// PTE is a page-table entry, per spec.md §3's PageTableEntry. VPN is
// implied by its position in an AddressSpace's PageTable slice, but is
// also stored explicitly (mirroring TranslationEntry.virtualPage in
// addrspace.cc) so a PTE can be copied or logged on its own.
type PTE struct {
	VPN      int
	PPN      int
	Valid    bool
	ReadOnly bool
	Use      bool
	Dirty    bool
	Shared   bool
	BackedUp bool
}

func invalidPTE(vpn int) PTE {
	return PTE{VPN: vpn, PPN: kernel.NONE}
}
