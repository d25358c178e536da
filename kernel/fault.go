package kernel

import "fmt"

// FaultKind enumerates the fatal error conditions of spec.md §7. All of
// them are irrecoverable for the faulting process; in Nachos terms they
// are an ASSERT failure, not a returnable error.
type FaultKind int

const (
	// BadMagic: the NOFF header's magic number matched neither the
	// native nor byte-swapped constant.
	BadMagic FaultKind = iota
	// FileOpenFailure: a late-bind address space could not open its
	// executable.
	FileOpenFailure
	// NoFrameAvailable: policy 0 ran out of bump-allocated frames, or no
	// policy could find a non-shared victim.
	NoFrameAvailable
	// EvictionOfShared: the replacement policy was about to return a
	// shared frame as a victim. This can only happen from a bug in the
	// policy implementation; invariant 2 (spec.md §3) forbids it.
	EvictionOfShared
)

func (k FaultKind) String() string {
	switch k {
	case BadMagic:
		return "BadMagic"
	case FileOpenFailure:
		return "FileOpenFailure"
	case NoFrameAvailable:
		return "NoFrameAvailable"
	case EvictionOfShared:
		return "EvictionOfShared"
	default:
		return "UnknownFault"
	}
}

// Fault is the panic value raised for any FaultKind. Propagation policy
// (spec.md §7): these are fatal to the faulting process and, in this
// simulator, to the whole run — callers are expected to let it propagate
// to a top-level recover that prints an abort message and exits, the way
// addrspace.cc's ASSERT macro aborts the whole simulation.
type Fault struct {
	Kind FaultKind
	Msg  string
}

func (f *Fault) Error() string {
	if f.Msg == "" {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

// Abort panics with a Fault of the given kind. Every fatal condition in
// this module goes through Abort so there is exactly one place that
// decides how a fatal kernel error is raised.
func Abort(kind FaultKind, format string, args ...any) {
	panic(&Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Recover turns a propagating *Fault into an abort message and a non-nil
// error, the way a top-level caller (e.g. cmd/nachosvmctl) is expected to
// handle it. It must be called via defer.
func Recover(into *error) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(*Fault)
	if !ok {
		panic(r)
	}
	*into = f
}
