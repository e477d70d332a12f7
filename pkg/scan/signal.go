package scan

import (
	"context"
	"sync/atomic"
)

// Signal is the shared stop flag of a run. It starts active and may be set
// exactly once; a set signal never becomes active again.
//
// Signal also owns a context that is cancelled when the signal is set, so
// I/O that opts into preemption can observe the stop.
type Signal struct {
	stopped atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSignal creates an active signal. Its context derives from parent.
func NewSignal(parent context.Context) *Signal {
	ctx, cancel := context.WithCancel(parent)
	return &Signal{
		ctx:    ctx,
		cancel: cancel,
	}
}

// IsSet reports whether the signal has been set. It never blocks.
func (s *Signal) IsSet() bool {
	return s.stopped.Load()
}

// Set stops the signal. Only the first call transitions the signal and
// returns true; later calls are no-ops.
func (s *Signal) Set() bool {
	if !s.stopped.CompareAndSwap(false, true) {
		return false
	}
	s.cancel()
	return true
}

// Context returns a context cancelled by Set (or by the parent).
func (s *Signal) Context() context.Context {
	return s.ctx
}

// Done is shorthand for Context().Done().
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// release frees the signal context without setting the flag.
func (s *Signal) release() {
	s.cancel()
}
