package kernel

import (
	"errors"
	"sync"
	"sync/atomic"
)

// The types below are hand-written fakes for the Simulator, FileSystem,
// ThreadTable and Stats contracts. They play the role that
// `go.uber.org/mock`-generated mocks play in akita's test suites
// (mem/vm/mmu/mmu_test.go mocks sim.Engine, sim.Port and vm.PageTable the
// same way); since this module's collaborators are simple enough to fake
// by hand, and since mockgen cannot be run here, we hand-author the
// equivalent doubles once and share them across every package's Ginkgo
// suite instead of re-deriving them per package.

// FakeSimulator is an in-memory Simulator used by every package's tests.
type FakeSimulator struct {
	mu              sync.Mutex
	mem             []byte
	registers       map[RegisterID]uint32
	installedTable  any
	installedLength int
}

// NewFakeSimulator allocates a zeroed physical memory array sized
// NumPhysFrames*PageSize.
func NewFakeSimulator() *FakeSimulator {
	return &FakeSimulator{
		mem:       make([]byte, NumPhysFrames*PageSize),
		registers: make(map[RegisterID]uint32),
	}
}

func (s *FakeSimulator) MainMemory() []byte { return s.mem }

func (s *FakeSimulator) WriteRegister(reg RegisterID, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[reg] = value
}

func (s *FakeSimulator) Register(reg RegisterID) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers[reg]
}

func (s *FakeSimulator) InstallPageTable(table any, length int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installedTable = table
	s.installedLength = length
}

func (s *FakeSimulator) InstalledPageTable() (any, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installedTable, s.installedLength
}

// FakeFile is an in-memory File backing a FakeFileSystem entry.
type FakeFile struct {
	data   []byte
	closed bool
}

func (f *FakeFile) ReadAt(dst []byte, length int, offset int64) (int, error) {
	if f.closed {
		return 0, errors.New("read on closed file")
	}
	if offset < 0 || int(offset) > len(f.data) {
		return 0, errors.New("offset out of range")
	}
	end := int(offset) + length
	if end > len(f.data) {
		end = len(f.data)
	}
	n := copy(dst, f.data[offset:end])
	return n, nil
}

func (f *FakeFile) Close() error {
	f.closed = true
	return nil
}

// FakeFileSystem serves File handles out of an in-memory map, standing in
// for Nachos's fileSystem->Open.
type FakeFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewFakeFileSystem creates a FakeFileSystem with the given named blobs.
func NewFakeFileSystem(files map[string][]byte) *FakeFileSystem {
	return &FakeFileSystem{files: files}
}

func (fs *FakeFileSystem) Open(path string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return &FakeFile{data: data}, nil
}

// FakeThreadTable is a ThreadTable fake backed by a map.
type FakeThreadTable struct {
	mu      sync.Mutex
	current ThreadHandle
	byPID   map[int]ThreadHandle
}

// NewFakeThreadTable creates a FakeThreadTable whose current thread is
// the given handle.
func NewFakeThreadTable(current ThreadHandle) *FakeThreadTable {
	t := &FakeThreadTable{
		current: current,
		byPID:   make(map[int]ThreadHandle),
	}
	t.byPID[current.PID] = current
	return t
}

func (t *FakeThreadTable) Current() ThreadHandle { return t.current }

func (t *FakeThreadTable) ByPID(pid int) (ThreadHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.byPID[pid]
	return h, ok
}

// Register adds pid as a known, resolvable thread.
func (t *FakeThreadTable) Register(h ThreadHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPID[h.PID] = h
	if h.PID == t.current.PID {
		t.current = h
	}
}

// SetCurrent switches which thread Current() returns, modelling a context
// switch performed by the scheduler collaborator.
func (t *FakeThreadTable) SetCurrent(h ThreadHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = h
	t.byPID[h.PID] = h
}

// InMemoryStats is the default Stats implementation used outside of a
// real telemetry sink (see package telemetry for the SQLite-backed one).
type InMemoryStats struct {
	ticks             atomic.Uint64
	totalPageFaults   atomic.Uint64
	sharedPageFaults  atomic.Uint64
}

// NewInMemoryStats returns a Stats whose tick counter starts at zero.
func NewInMemoryStats() *InMemoryStats {
	return &InMemoryStats{}
}

func (s *InMemoryStats) Ticks() uint64 { return s.ticks.Load() }

// Tick advances the virtual clock, mirroring stats->totalTicks increasing
// as the simulated CPU executes instructions.
func (s *InMemoryStats) Tick() uint64 { return s.ticks.Add(1) }

func (s *InMemoryStats) AddPageFault()       { s.totalPageFaults.Add(1) }
func (s *InMemoryStats) AddSharedPageFault() { s.sharedPageFaults.Add(1) }

// TotalPageFaults reports stats->totalPageFaults for assertions.
func (s *InMemoryStats) TotalPageFaults() uint64 { return s.totalPageFaults.Load() }

// SharedPageFaults reports stats->sharedPageFaults for assertions.
func (s *InMemoryStats) SharedPageFaults() uint64 { return s.sharedPageFaults.Load() }
