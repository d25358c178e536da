package kernel

// The interfaces below are the "external collaborators" of spec.md §1:
// the CPU/MMU simulator, the file system, and the thread/scheduler layer.
// This module only consumes them; it never implements the real thing.

// Simulator is the MIPS-like machine the memory subsystem runs inside.
// It owns the linear physical memory array and the register file.
type Simulator interface {
	// MainMemory returns the full physical memory backing store, sized
	// kernel.NumPhysFrames*kernel.PageSize.
	MainMemory() []byte
	// WriteRegister sets the value of a simulated CPU register.
	WriteRegister(reg RegisterID, value uint32)
	// InstallPageTable points the simulator's MMU at a page table for
	// address translation. table is opaque to the simulator; it is
	// whatever the current address space last installed.
	InstallPageTable(table any, length int)
}

// File is a random-access handle opened by the FileSystem collaborator.
type File interface {
	// ReadAt reads length bytes starting at offset into dst. It mirrors
	// addrspace.cc's OpenFile::ReadAt.
	ReadAt(dst []byte, length int, offset int64) (int, error)
	Close() error
}

// FileSystem opens executables for the loader (C1) and for late-bound
// address spaces that need to re-open their executable after fork.
type FileSystem interface {
	Open(path string) (File, error)
}

// ThreadHandle identifies the currently running thread and its owning
// process, per spec.md §6's thread contract.
type ThreadHandle struct {
	PID int
	// Space is the address space owned by this thread (Nachos's
	// threadArray[pid]->space), carried as `any` so that this package
	// never has to import the addrspace package that implements it.
	Space any
}

// ThreadTable resolves a pid to the thread that owns it, standing in for
// Nachos's global threadArray.
type ThreadTable interface {
	Current() ThreadHandle
	ByPID(pid int) (ThreadHandle, bool)
}

// Stats is the statistics/telemetry sink of spec.md §1's out-of-scope
// collaborators. AddPageFault and AddSharedPageFault are non-fatal
// counters per spec.md §7 ("successful eviction, demand page, shared
// alloc... increment statistics counters but do not notify the caller").
type Stats interface {
	Ticks() uint64
	AddPageFault()
	AddSharedPageFault()
}
