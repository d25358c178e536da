package addrspace

// switchSnapshot holds everything SaveOnSwitch captures and
// RestoreOnSwitch needs back, grounded on addrspace.cc's
// SaveContextOnSwitch/RestoreContextOnSwitch pairing around the MMU's
// page-table pointer (the register file itself is saved and restored by
// the scheduler, out of this package's scope per spec.md §1).
type switchSnapshot struct {
	pageTable []PTE
	length    int
}

// SaveOnSwitch implements half of C7, spec.md §4.7: record the current
// page table so it can be handed back to the simulator unchanged the
// next time this address space runs. Unlike RestoreContextOnSwitch,
// which reinstalls the pointer immediately, Nachos's SaveContextOnSwitch
// does nothing at all (the page table pointer is only read, never
// written, on a save) — this is kept as a snapshot for symmetry and so a
// host scheduler can diff it if it wants to; it changes no simulator
// state.
func (a *AddressSpace) SaveOnSwitch() switchSnapshot {
	return switchSnapshot{pageTable: a.PageTable, length: a.NumVirtualPages}
}

// RestoreOnSwitch implements the other half of C7: reinstall this
// address space's page table into the simulator's MMU, per
// addrspace.cc's RestoreContextOnSwitch.
func (a *AddressSpace) RestoreOnSwitch() {
	a.k.Sim.InstallPageTable(a.PageTable, a.NumVirtualPages)
}
