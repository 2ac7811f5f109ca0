// Package ffi adapts the foreign invocable contract spec.md §6 describes
// — init(ptr)/call(ptr)->int32/free(ptr), zero meaning success — into an
// orchestration.Invocable, without cgo. Actual C ABI shims binding a
// Handle to a real foreign object are an external-collaborator concern
// (spec.md §1); this package is the Go-native shape the core depends on,
// a plain closure standing in for the foreign pointer.
package ffi

import (
	"context"
	"fmt"
	"sync"

	orchestration "github.com/qorix-group/inc-orchestrator"
)

// Handle mirrors the narrow C ABI spec.md §6 requires: Init runs once
// before the first Call, Call returns zero on success and a non-zero
// code otherwise, Free releases foreign-side state. No arguments, no
// return payload beyond the code — state lives entirely on the foreign
// side, mirroring the original contract's "state is the invocable's
// own".
type Handle struct {
	Init func() error
	Call func() int32
	Free func()
}

var (
	mu       sync.Mutex
	registry = make(map[string]*Handle)
)

// Register names a Handle so designs can reference foreign invocables
// by name instead of holding the raw Handle.
func Register(name string, h *Handle) error {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("ffi: handle %q already registered", name)
	}
	registry[name] = h
	return nil
}

// Lookup resolves a previously registered Handle.
func Lookup(name string) (*Handle, bool) {
	mu.Lock()
	defer mu.Unlock()
	h, ok := registry[name]
	return h, ok
}

// ErrForeignCall wraps a non-zero return code from a foreign Call — the
// "zero means success" contract's failure case, distinct from a Go
// error since the foreign side never constructs one.
type ErrForeignCall struct {
	Name string
	Code int32
}

func (e *ErrForeignCall) Error() string {
	return fmt.Sprintf("ffi: %q returned non-zero code %d", e.Name, e.Code)
}

// Invocable adapts a Handle to orchestration.Invocable. Init runs once,
// lazily, on the first Call.
type Invocable struct {
	name string
	h    *Handle

	mu          sync.Mutex
	initialized bool
}

// NewInvocable wraps h as an orchestration.Invocable named name.
func NewInvocable(name string, h *Handle) *Invocable {
	return &Invocable{name: name, h: h}
}

// Call implements orchestration.Invocable, running Init on first use and
// translating a non-zero Call return into an *ErrForeignCall.
func (iv *Invocable) Call(ctx context.Context) error {
	iv.mu.Lock()
	if !iv.initialized {
		if iv.h.Init != nil {
			if err := iv.h.Init(); err != nil {
				iv.mu.Unlock()
				return fmt.Errorf("ffi: %q init failed: %w", iv.name, err)
			}
		}
		iv.initialized = true
	}
	iv.mu.Unlock()

	if iv.h.Call == nil {
		return fmt.Errorf("ffi: %q has no call implementation", iv.name)
	}
	if code := iv.h.Call(); code != 0 {
		return &ErrForeignCall{Name: iv.name, Code: code}
	}
	return nil
}

// Release runs the handle's Free hook and resets initialization state,
// the FFI boundary's teardown step.
func (iv *Invocable) Release() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.h.Free != nil {
		iv.h.Free()
	}
	iv.initialized = false
}

var _ orchestration.Invocable = (*Invocable)(nil)
