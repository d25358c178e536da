package addrspace

import (
	"fmt"

	"github.com/nachosvm/vm/kernel"
	"github.com/nachosvm/vm/noff"
)

// AddressSpace is a per-process virtual-to-physical mapping plus its
// backing buffer, per spec.md §3's AddressSpace data model.
type AddressSpace struct {
	ID     string
	PID    int
	Thread any

	NumVirtualPages int
	PageTable       []PTE
	Backup          []byte

	ExecPath   string
	Executable *noff.Executable

	// OnPageCopied is called once per page copied during Fork, with the
	// tick cost the original Nachos source charges for the copy
	// (SortedInsertInWaitQueue(stats->totalTicks + 1000) in
	// manageChildParentTable). It is nil by default; a host kernel with
	// a real scheduler can set it to actually charge that cost. See
	// SPEC_FULL.md §4.1.
	OnPageCopied func(ticks int)

	k *Kernel

	// openErr records a late-bind open failure that spec.md §7 says must
	// be "reported" rather than aborted immediately, leaving the space
	// in a state where the first fault against it is fatal.
	openErr error
}

func ceilDivPages(size uint32) int {
	return int((size + kernel.PageSize - 1) / kernel.PageSize)
}

// NewFromExecutable implements spec.md §4.4's "Load-from-file (exec)"
// path: size = code + initData + uninitData + UserStackSize, rounded up
// to whole pages. When k.DemandPaging is false, every page is allocated
// and zeroed immediately and the code/initData segments are copied in;
// when true, every PTE starts invalid and faults populate pages lazily.
func NewFromExecutable(k *Kernel, path string, pid int, thread any) (*AddressSpace, error) {
	exe, err := noff.Open(k.FS, path)
	if err != nil {
		return nil, err
	}

	h := exe.Header
	totalSize := h.TotalSize() + kernel.UserStackSize
	numPages := ceilDivPages(totalSize)

	a := &AddressSpace{
		ID:              kernel.NewSpaceID(),
		PID:             pid,
		Thread:          thread,
		NumVirtualPages: numPages,
		PageTable:       make([]PTE, numPages),
		Backup:          make([]byte, numPages*kernel.PageSize),
		ExecPath:        path,
		Executable:      exe,
		k:               k,
	}

	if k.DemandPaging {
		for i := range a.PageTable {
			a.PageTable[i] = invalidPTE(i)
		}
		return a, nil
	}

	if err := a.loadEager(); err != nil {
		return nil, err
	}
	return a, nil
}

// loadEager implements the demand-paging-off branch: claim one frame per
// virtual page, zero it, then copy in the code and initData segments.
func (a *AddressSpace) loadEager() error {
	k := a.k
	restore := k.Preempt.Disable()
	defer restore()

	mem := k.Sim.MainMemory()

	for i := range a.PageTable {
		f, ok := k.acquireFrame(kernel.NONE)
		if !ok {
			kernel.Abort(kernel.NoFrameAvailable, "load %q: no frame for page %d of %d", a.ExecPath, i, a.NumVirtualPages)
		}
		k.Frames.Claim(f, a.PID, a.Thread, i, false, k.Stats.Ticks())

		a.PageTable[i] = PTE{VPN: i, PPN: f, Valid: true}

		start := f * kernel.PageSize
		for j := start; j < start+kernel.PageSize; j++ {
			mem[j] = 0
		}
	}

	if err := a.loadSegment(a.Executable.Header.Code); err != nil {
		return err
	}
	if err := a.loadSegment(a.Executable.Header.InitData); err != nil {
		return err
	}
	return nil
}

// loadSegment copies seg.Size bytes from the executable at seg.InFileAddr
// into the virtual range starting at seg.VirtualAddr, one page at a time
// so that it is correct even when the pages a segment spans were not
// claimed as physically contiguous frames. A zero-size segment is a
// documented boundary case (spec.md §8): no copy occurs.
func (a *AddressSpace) loadSegment(seg noff.Segment) error {
	if seg.Size == 0 {
		return nil
	}

	mem := a.k.Sim.MainMemory()
	remaining := int(seg.Size)
	vaddr := int(seg.VirtualAddr)
	fileOff := int64(seg.InFileAddr)

	for remaining > 0 {
		vpn := vaddr / kernel.PageSize
		pageOff := vaddr % kernel.PageSize
		chunk := kernel.PageSize - pageOff
		if chunk > remaining {
			chunk = remaining
		}

		f := a.PageTable[vpn].PPN
		dst := mem[f*kernel.PageSize+pageOff : f*kernel.PageSize+pageOff+chunk]
		if _, err := a.Executable.ReadAt(dst, chunk, fileOff); err != nil {
			return fmt.Errorf("addrspace: loading segment at vaddr %d: %w", vaddr, err)
		}

		vaddr += chunk
		fileOff += int64(chunk)
		remaining -= chunk
	}
	return nil
}

// NewLateBound implements spec.md §4.4's "Late-bind-from-path" path: open
// the executable, parse and swap its header, size the table and backup
// buffer, but leave every PTE invalid and claim no frames. This is used
// when an external exec-like setup will populate the space afterwards.
//
// Per spec.md §7, a FileOpenFailure here is "reported" rather than an
// immediate abort: on failure this still returns a non-nil *AddressSpace
// (with zero virtual pages) alongside the error, so the caller can choose
// to keep going; any subsequent DemandPage against that space is fatal.
func NewLateBound(k *Kernel, path string, pid int, thread any) (*AddressSpace, error) {
	f, err := k.FS.Open(path)
	if err != nil {
		return &AddressSpace{
			ID:      kernel.NewSpaceID(),
			PID:     pid,
			Thread:  thread,
			k:       k,
			openErr: fmt.Errorf("addrspace: opening %q: %w", path, err),
		}, err
	}

	h, err := noff.ParseHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	totalSize := h.TotalSize() + kernel.UserStackSize
	numPages := ceilDivPages(totalSize)

	a := &AddressSpace{
		ID:              kernel.NewSpaceID(),
		PID:             pid,
		Thread:          thread,
		NumVirtualPages: numPages,
		PageTable:       make([]PTE, numPages),
		Backup:          make([]byte, numPages*kernel.PageSize),
		ExecPath:        path,
		Executable:      &noff.Executable{Path: path, File: f, Header: h},
		k:               k,
	}
	for i := range a.PageTable {
		a.PageTable[i] = invalidPTE(i)
	}
	return a, nil
}

// AllocateShared implements spec.md §4.4's shared-memory allocation:
// grow the page table, bump-claim that many fresh frames marked shared,
// and reinstall the new page table in the simulator. It returns the base
// virtual address of the new region (scenario S4).
func (a *AddressSpace) AllocateShared(bytes int) uint32 {
	k := a.k
	numNew := ceilDivPages(uint32(bytes))
	base := a.NumVirtualPages

	newTable := make([]PTE, base+numNew)
	copy(newTable, a.PageTable)

	restore := k.Preempt.Disable()
	for i := 0; i < numNew; i++ {
		vpn := base + i
		f, ok := k.acquireFrame(kernel.NONE)
		if !ok {
			restore()
			kernel.Abort(kernel.NoFrameAvailable, "allocateShared: no frame for shared page %d", i)
		}
		k.Frames.Claim(f, a.PID, a.Thread, vpn, true, k.Stats.Ticks())
		newTable[vpn] = PTE{VPN: vpn, PPN: f, Valid: true, Shared: true}
	}
	restore()

	a.PageTable = newTable
	a.NumVirtualPages = base + numNew
	k.Sim.InstallPageTable(a.PageTable, a.NumVirtualPages)

	// Supplemented feature (SPEC_FULL.md §4.2): both counters advance,
	// matching addrspace.cc's AllocateSharedMemory.
	for i := 0; i < numNew; i++ {
		k.Stats.AddSharedPageFault()
		k.Stats.AddPageFault()
	}

	return uint32(base * kernel.PageSize)
}

// Destroy releases every non-shared, valid frame this space owns, per
// spec.md §4.4's destruction rule and design-note decision 2 (shared
// frames are intentionally not reference-counted or released here).
func (a *AddressSpace) Destroy() {
	if a.k == nil {
		return
	}
	restore := a.k.Preempt.Disable()
	defer restore()

	for i := range a.PageTable {
		pte := &a.PageTable[i]
		if pte.Valid && !pte.Shared {
			a.k.Frames.Release(pte.PPN)
			pte.Valid = false
			pte.PPN = kernel.NONE
		}
	}

	if a.Executable != nil {
		_ = a.Executable.Close()
		a.Executable = nil
	}
	a.PageTable = nil
}

// NumPages returns the table length, per spec.md §6's exposed `numPages()`.
func (a *AddressSpace) NumPages() int { return a.NumVirtualPages }

// Pages returns the live page table, per spec.md §6's exposed
// `pageTable()`. The simulator is expected to mutate Use/Dirty bits on
// the returned entries directly, the way it does in addrspace.cc.
func (a *AddressSpace) Pages() []PTE { return a.PageTable }
