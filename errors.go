package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors matching spec.md §7's BuildError variants.
var (
	ErrCyclicGraph       = errors.New("orchestration: cyclic graph")
	ErrInvalidSwitchCase = errors.New("orchestration: invalid switch case")
	ErrUnknownTag        = errors.New("orchestration: unknown tag")
	ErrDuplicateTag      = errors.New("orchestration: duplicate tag")
	ErrZeroCapacity      = errors.New("orchestration: zero capacity")
	ErrEmptySequence     = errors.New("orchestration: sequence is empty")
)

// Sentinel errors matching spec.md §7's DeploymentError variants.
var (
	ErrUnboundEvent         = errors.New("orchestration: unbound event")
	ErrMissingWorker        = errors.New("orchestration: missing worker")
	ErrIncompatibleTransport = errors.New("orchestration: incompatible transport")
)

// Sentinel errors matching spec.md §7's RuntimeError variants.
var (
	ErrPoolExhausted     = errors.New("orchestration: pool exhausted")
	ErrEnqueueRejected   = errors.New("orchestration: worker enqueue rejected")
	ErrInvocableAborted  = errors.New("orchestration: invocable aborted")
	ErrIndexOutOfBounds  = errors.New("orchestration: index out of bounds")
	ErrSwitchMiss        = errors.New("orchestration: switch miss")
)

// ErrCancelled is not an error to the parent when the cancellation was
// expected (Select losers, Concurrency siblings on first error); it
// propagates as an error only when observed where no cancellation was
// requested (spec.md §7).
var ErrCancelled = errors.New("orchestration: cancelled")

// BuildError wraps a fault discovered while constructing an action tree —
// cyclic DAG, invalid switch case, unknown/duplicate tag, zero capacity.
type BuildError struct{ Err error }

func (e *BuildError) Error() string { return fmt.Sprintf("build error: %v", e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }

// DeploymentError wraps a fault discovered while binding tags to concrete
// runtime objects — unbound event, missing worker, incompatible transport.
type DeploymentError struct{ Err error }

func (e *DeploymentError) Error() string { return fmt.Sprintf("deployment error: %v", e.Err) }
func (e *DeploymentError) Unwrap() error { return e.Err }

// RuntimeError wraps a fault discovered while running — pool exhausted,
// worker enqueue rejected, invocable failure (which itself wraps a
// UserError).
type RuntimeError struct{ Err error }

func (e *RuntimeError) Error() string { return fmt.Sprintf("runtime error: %v", e.Err) }
func (e *RuntimeError) Unwrap() error { return e.Err }

// UserError is the opaque payload an Invocable reports; Catch filters match
// against it (spec.md §3, §7).
type UserError struct{ Err error }

func (e *UserError) Error() string { return e.Err.Error() }
func (e *UserError) Unwrap() error { return e.Err }

// KernelError carries rich context about where and when an action tree
// failed: the path of action names from root to the failing node, the
// underlying error, timing, and whether the failure was a timeout or
// cancellation. Modeled directly on pipz's Error[T], generalized to the
// untyped Action Kernel (no InputData field — actions carry no payload).
type KernelError struct {
	Timestamp time.Time
	Err       error
	Path      []Name
	Duration  time.Duration
	Timeout   bool
	Canceled  bool
}

func (e *KernelError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := strings.Join(e.Path, " -> ")
	if path == "" {
		path = "unknown"
	}
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s timed out after %v: %v", path, e.Duration, e.Err)
	case e.Canceled:
		return fmt.Sprintf("%s canceled after %v: %v", path, e.Duration, e.Err)
	default:
		return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
	}
}

func (e *KernelError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether the failure was a timeout, explicit or via
// context.DeadlineExceeded.
func (e *KernelError) IsTimeout() bool {
	if e == nil {
		return false
	}
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the failure was a cancellation, explicit or
// via context.Canceled.
func (e *KernelError) IsCanceled() bool {
	if e == nil {
		return false
	}
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}

// prependPath wraps err in (or extends) a *KernelError with name prepended
// to its Path, the pattern every action uses on the way back up the tree
// (spec.md §7: "errors bubble up the action tree").
func prependPath(name Name, err error) error {
	if err == nil {
		return nil
	}
	var kerr *KernelError
	if errors.As(err, &kerr) {
		kerr.Path = append([]Name{name}, kerr.Path...)
		return kerr
	}
	return &KernelError{
		Err:       err,
		Path:      []Name{name},
		Timestamp: time.Now(),
		Canceled:  errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled),
		Timeout:   errors.Is(err, context.DeadlineExceeded),
	}
}

// recoverFromPanic turns a panic inside an action's Execute into a
// RuntimeError rather than crashing the hosting worker — the uniform
// safety net every leaf Invoke depends on, since a foreign invocable may
// abort unexpectedly (spec.md §7: "Invocable panics/aborts are caught at
// the FFI boundary").
func recoverFromPanic(err *error, name Name) {
	if r := recover(); r != nil {
		*err = prependPath(name, &RuntimeError{Err: fmt.Errorf("%w: %v", ErrInvocableAborted, r)})
	}
}
