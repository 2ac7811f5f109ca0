package kyron

import (
	"runtime"

	"go.uber.org/atomic"
)

// OrchestrationMutex is an atomic try-lock that yields cooperatively on
// contention instead of parking the calling goroutine the way sync.Mutex
// does (spec.md §5, GLOSSARY "OrchestrationMutex": "an atomic try-lock
// with cooperative yield on contention"). A cooperative worker's own
// goroutine is the only thing draining its queue; blocking it on a
// contended sync.Mutex risks stalling every task still waiting behind it
// on that worker, so the short critical sections variable-fanout actions
// take around their shared bookkeeping spin and yield instead.
type OrchestrationMutex struct {
	locked atomic.Bool
}

// TryLock attempts to acquire the mutex without blocking.
func (m *OrchestrationMutex) TryLock() bool {
	return m.locked.CAS(false, true)
}

// Lock spins on TryLock, calling runtime.Gosched between attempts so the
// calling goroutine yields to the scheduler rather than burning a core
// against a short-lived holder.
func (m *OrchestrationMutex) Lock() {
	for !m.TryLock() {
		runtime.Gosched()
	}
}

// Unlock releases the mutex. Unlock on an already-unlocked
// OrchestrationMutex is a no-op, not a panic — callers that only ever
// pair Lock/Unlock never observe the difference.
func (m *OrchestrationMutex) Unlock() {
	m.locked.Store(false)
}
