package addrspace

import "github.com/nachosvm/vm/kernel"

// InitCPURegisters implements C6, spec.md §4.6's register bootstrap,
// grounded on addrspace.cc's InitUserModeCPURegisters: every general
// register is zeroed, the program counter is set to 0 (the conventional
// user-mode entry point) and the "next" PC register to 4 (branch-delay
// slot semantics), and the
// stack register is set to the top of the address space's virtual
// memory minus a small safety margin so the very first stack access does
// not immediately fault past the last page.
func (a *AddressSpace) InitCPURegisters() {
	for r := kernel.RegisterID(0); r < kernel.NumTotalRegs; r++ {
		a.k.Sim.WriteRegister(r, 0)
	}

	a.k.Sim.WriteRegister(kernel.PCReg, 0)
	a.k.Sim.WriteRegister(kernel.NextPCReg, 4)

	top := uint32(a.NumVirtualPages*kernel.PageSize) - 16
	a.k.Sim.WriteRegister(kernel.StackReg, top)
}
