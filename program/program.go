package program

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/kyron"
)

// ErrDeploymentIncomplete reports that Run was called before Deploy
// bound a Runtime (spec.md §8: a design is inert until deployed).
var ErrDeploymentIncomplete = errors.New("program: deployment incomplete: no runtime bound")

// Program is one design-time composition — a root OrchestrationTag
// resolved against a Database — bound to a concrete deployment (a
// kyron.Runtime) before it can run. The design/deployment split mirrors
// spec.md §8: the same Database and root tag can be redeployed against a
// different Runtime topology (engine count, worker pinning) without
// touching the composed action tree at all, the same way the teacher
// separates building a Chainable from running it against a context.
type Program struct {
	name string
	db   *Database
	root Tag

	mu      sync.Mutex
	runtime *kyron.Runtime
	where   kyron.Where
	bound   bool
}

// New creates a Program named name, rooted at root, against db. The
// Program is inert until Deploy binds it to a Runtime.
func New(name string, db *Database, root OrchestrationTag) *Program {
	return &Program{name: name, db: db, root: root.Tag, where: kyron.Current()}
}

// Deploy binds the Program to runtime, routing its root spawn via where.
// Deploy may be called again to redeploy the same design elsewhere.
func (p *Program) Deploy(runtime *kyron.Runtime, where kyron.Where) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runtime = runtime
	p.where = where
	p.bound = true
}

// Run resolves the root tag and spawns it onto the bound Runtime via
// BlockOn, returning once it completes. Run fails with
// ErrDeploymentIncomplete if Deploy was never called, and with a wrapped
// "root action not registered" error if the Database doesn't actually
// hold the tag Program was constructed with (a design/database mismatch
// caught at run time rather than left to silently no-op).
func (p *Program) Run(ctx context.Context) error {
	p.mu.Lock()
	bound := p.bound
	runtime := p.runtime
	where := p.where
	p.mu.Unlock()

	if !bound {
		return ErrDeploymentIncomplete
	}

	root, ok := p.db.Lookup(p.root)
	if !ok {
		name, _ := p.db.Name(p.root)
		return fmt.Errorf("program: root action %q not registered in database", name)
	}

	start := time.Now()
	capitan.Info(ctx, kyron.SignalRuntimeSpawn)

	done := make(chan error, 1)
	spawnErr := runtime.Spawn(func() {
		done <- root.Execute(ctx)
	}, where)
	if spawnErr != nil {
		return spawnErr
	}

	select {
	case err := <-done:
		capitan.Info(ctx, kyron.SignalRuntimeShutdownDone)
		_ = time.Since(start)
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown tears down the bound Runtime with the given drain deadline.
func (p *Program) Shutdown(deadline time.Duration) error {
	p.mu.Lock()
	runtime := p.runtime
	bound := p.bound
	p.mu.Unlock()
	if !bound {
		return ErrDeploymentIncomplete
	}
	return runtime.Shutdown(deadline)
}

// Name returns the program's name.
func (p *Program) Name() string { return p.name }
