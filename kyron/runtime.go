package kyron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"go.uber.org/atomic"
)

// Where selects the routing target for Runtime.Spawn (spec.md §4.5).
type Where struct {
	kind     whereKind
	engineID string
	workerID string
}

type whereKind int

const (
	whereCurrent whereKind = iota
	whereEngine
	whereWorker
)

// Current routes to the runtime's default engine (the first engine passed
// to NewRuntime). Spawn does not track which engine a calling task runs on.
func Current() Where { return Where{kind: whereCurrent} }

// OnEngine routes to the named engine's async worker pool.
func OnEngine(id string) Where { return Where{kind: whereEngine, engineID: id} }

// OnWorker routes to a specific (typically dedicated) worker.
func OnWorker(engineID, workerID string) Where {
	return Where{kind: whereWorker, engineID: engineID, workerID: workerID}
}

// Runtime composes Engines, routes spawns, and coordinates shutdown: stop
// accepting new spawns, then signal every Engine to stop (see Shutdown).
type Runtime struct {
	mu       sync.RWMutex
	engines  map[string]*Engine
	order    []string
	defaultE string
	shutdown atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRuntime composes the given engines; the first one becomes the default
// target for Current() spawns.
func NewRuntime(engines ...*Engine) *Runtime {
	r := &Runtime{engines: make(map[string]*Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.id] = e
		r.order = append(r.order, e.id)
	}
	if len(engines) > 0 {
		r.defaultE = engines[0].id
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Start launches every composed engine.
func (r *Runtime) Start() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		r.ctx = r.engines[id].Start(r.ctx)
	}
}

// Spawn routes task per where. Returns ErrShuttingDown once Shutdown has
// begun accepting-phase teardown.
func (r *Runtime) Spawn(task func(), where Where) error {
	if r.shutdown.Load() {
		return ErrShuttingDown
	}
	capitan.Info(r.ctx, SignalRuntimeSpawn)

	r.mu.RLock()
	defer r.mu.RUnlock()

	switch where.kind {
	case whereWorker:
		e, ok := r.engines[where.engineID]
		if !ok {
			return ErrNoSuchEngine
		}
		return e.spawnDedicated(where.workerID, task)
	case whereEngine:
		e, ok := r.engines[where.engineID]
		if !ok {
			return ErrNoSuchEngine
		}
		return e.spawnAsync(task)
	default: // whereCurrent
		e, ok := r.engines[r.defaultE]
		if !ok {
			return ErrNoSuchEngine
		}
		return e.spawnAsync(task)
	}
}

// BlockOn parks the caller until fn completes, driving fn synchronously —
// the runtime does not re-drive a future already running on an Engine
// (spec.md §4.5).
func (r *Runtime) BlockOn(fn func(ctx context.Context) error) error {
	return fn(r.ctx)
}

// Shutdown stops accepting new spawns, then calls Engine.Stop on every
// engine in reverse composition order. It does not wait for the workers'
// goroutines to exit: the drain step completes once every engine has been
// signalled, and only if that step has not completed within deadline is
// the runtime context cancelled and an error returned.
func (r *Runtime) Shutdown(deadline time.Duration) error {
	r.shutdown.Store(true)
	capitan.Info(r.ctx, SignalRuntimeShutdownBeg)

	r.mu.RLock()
	engines := make([]*Engine, 0, len(r.order))
	for _, id := range r.order {
		engines = append(engines, r.engines[id])
	}
	r.mu.RUnlock()

	for i := len(engines) - 1; i >= 0; i-- {
		engines[i].Stop()
	}

	done := make(chan struct{})
	go func() {
		// Engine.Stop only signals its workers; no join handle for their
		// goroutines is held here (the Scheduler.Run goroutine owns the
		// async ones), so the drain completes without waiting on them.
		close(done)
	}()

	select {
	case <-done:
		capitan.Info(r.ctx, SignalRuntimeShutdownDone)
	case <-time.After(deadline):
		capitan.Warn(r.ctx, SignalRuntimeForceKilled)
		r.cancel()
		return errors.New("kyron: shutdown deadline exceeded, engines force-terminated")
	}
	return nil
}
