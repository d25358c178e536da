package kernel

import "sync"

// Preemption models the thread layer's interrupt.SetLevel primitive
// (spec.md §5, §6). Scheduling is single-threaded cooperative, so this
// never blocks; it exists so that every multi-step frame-table mutation
// is bracketed the way spec.md §5 requires ("scoped acquisition with
// guaranteed release on all exit paths"), and so a test can assert that a
// given operation disabled preemption around its critical section.
type Preemption struct {
	mu      sync.Mutex
	enabled bool
}

// NewPreemption returns a Preemption with interrupts enabled, the normal
// running state.
func NewPreemption() *Preemption {
	return &Preemption{enabled: true}
}

// Disable turns preemption off and returns a restore function that must
// be deferred immediately, e.g.:
//
//	restore := p.Disable()
//	defer restore()
func (p *Preemption) Disable() (restore func()) {
	p.mu.Lock()
	old := p.enabled
	p.enabled = false
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.enabled = old
		p.mu.Unlock()
	}
}

// Enabled reports whether preemption is currently allowed. Tests use this
// to assert that a critical section ran with preemption disabled.
func (p *Preemption) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}
