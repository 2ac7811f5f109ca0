package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/kyron"
)

// LocalGraph runs a set of child actions as a DAG: each node starts only
// once every action it depends on has completed (spec.md §4.7:
// "LocalGraph runs nodes as soon as their dependencies are satisfied").
// A node whose dependency failed, or whose dependency never got the
// chance to run because something upstream of it failed, is never
// started — failure short-circuits its entire downstream subgraph. The
// graph-wide context is cancelled on the first node failure, so the
// remainder of the cancellation-propagation behavior matches Concurrency.
//
// Cycles and references to undeclared nodes are rejected once, at Build
// time, via a gray/black depth-first traversal (spec.md §4.7: "at build
// time, validates the graph is acyclic ... a back edge fails build").
// Build also preallocates one completion latch per node; Execute reuses
// both across every call. Each Execute still allocates its derived
// context, the per-node task closures and one watcher goroutine.
type LocalGraph struct {
	name Name
	mu   sync.RWMutex
	nodes map[Name]Action
	deps  map[Name][]Name
	order []Name // insertion order, for deterministic Describe output

	buildOnce sync.Once
	buildErr  error
	built     bool

	index          map[Name]int
	actionsByIndex []Action
	depsByIndex    [][]int
	latches        []*nodeLatch
	failed         []atomicErrFlag

	runtime *kyron.Runtime
	where   func(i int, action Action) kyron.Where
}

// NewLocalGraph creates an empty LocalGraph.
func NewLocalGraph(name Name) *LocalGraph {
	return &LocalGraph{
		name:  name,
		nodes: make(map[Name]Action),
		deps:  make(map[Name][]Name),
	}
}

// AddNode registers action as a graph node, depending on the named
// actions in dependsOn (which need not be registered yet). AddNode after
// Build invalidates the cached build state; the next Execute re-Builds.
func (g *LocalGraph) AddNode(action Action, dependsOn ...Name) *LocalGraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := action.Name()
	if _, exists := g.nodes[n]; !exists {
		g.order = append(g.order, n)
	}
	g.nodes[n] = action
	g.deps[n] = append(g.deps[n], dependsOn...)
	g.resetBuildLocked()
	return g
}

// Deploy binds this LocalGraph to runtime, routing node i's future
// through where(i, action) via Runtime.Spawn instead of a bare goroutine
// (spec.md §4.5). Deploy may be called again to redeploy the same graph
// elsewhere; it does not require rebuilding.
func (g *LocalGraph) Deploy(runtime *kyron.Runtime, where func(i int, action Action) kyron.Where) *LocalGraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runtime = runtime
	g.where = where
	return g
}

func (g *LocalGraph) resetBuildLocked() {
	g.buildOnce = sync.Once{}
	g.buildErr = nil
	g.built = false
}

// Name returns the action's name.
func (g *LocalGraph) Name() Name { return g.name }

// Shape reports that up to every node may be in flight simultaneously.
func (g *LocalGraph) Shape() ResourceShape {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return ResourceShape{MaxConcurrentChildren: len(g.nodes), BufferSlots: len(g.nodes)}
}

const (
	graphWhite = 0
	graphGray  = 1
	graphBlack = 2
)

func validateGraph(nodes map[Name]Action, deps map[Name][]Name) error {
	color := make(map[Name]int, len(nodes))

	var visit func(n Name, path []Name) error
	visit = func(n Name, path []Name) error {
		switch color[n] {
		case graphBlack:
			return nil
		case graphGray:
			return fmt.Errorf("%w: %s", ErrCyclicGraph, strings.Join(append(path, n), " -> "))
		}
		color[n] = graphGray
		for _, dep := range deps[n] {
			if _, ok := nodes[dep]; !ok {
				return fmt.Errorf("%w: %q depends on unregistered node %q", ErrUnknownTag, n, dep)
			}
			if err := visit(dep, append(path, n)); err != nil {
				return err
			}
		}
		color[n] = graphBlack
		return nil
	}

	for n := range nodes {
		if err := visit(n, nil); err != nil {
			return err
		}
	}
	return nil
}

// Build validates the graph is acyclic and preallocates every node's
// completion latch, running exactly once per registration state (a
// later AddNode forces the next Build to redo this work). Execute calls
// Build itself, so callers never have to remember to; the point of a
// separate method is that the validation and latch allocation happen
// once, not on every Execute, which Build's sync.Once guarantees.
func (g *LocalGraph) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buildLocked()
}

func (g *LocalGraph) buildLocked() error {
	g.buildOnce.Do(func() {
		if err := validateGraph(g.nodes, g.deps); err != nil {
			g.buildErr = prependPath(g.name, &BuildError{Err: err})
			return
		}

		order := append([]Name(nil), g.order...)
		index := make(map[Name]int, len(order))
		for i, n := range order {
			index[n] = i
		}

		actionsByIndex := make([]Action, len(order))
		depsByIndex := make([][]int, len(order))
		for i, n := range order {
			actionsByIndex[i] = g.nodes[n]
			ds := g.deps[n]
			idxs := make([]int, len(ds))
			for j, d := range ds {
				idxs[j] = index[d]
			}
			depsByIndex[i] = idxs
		}

		latches := make([]*nodeLatch, len(order))
		for i := range latches {
			latches[i] = newNodeLatch()
		}

		g.index = index
		g.actionsByIndex = actionsByIndex
		g.depsByIndex = depsByIndex
		g.latches = latches
		g.failed = make([]atomicErrFlag, len(order))
		g.built = true
	})
	return g.buildErr
}

// Execute runs every node concurrently, each waiting on its own
// dependencies' completion latches from the preallocated build state.
// The first node failure cancels the shared context, which causes every
// node still waiting on a dependency to skip rather than run.
func (g *LocalGraph) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, g.name)

	start := time.Now()

	g.mu.RLock()
	if buildErr := g.buildLocked(); buildErr != nil {
		g.mu.RUnlock()
		return buildErr
	}

	actions := g.actionsByIndex
	deps := g.depsByIndex
	latches := g.latches
	failed := g.failed
	runtime := g.runtime
	where := g.where
	defer g.mu.RUnlock()

	if len(actions) == 0 {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := range latches {
		latches[i].reset()
		failed[i].clear()
	}

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-childCtx.Done():
			for _, l := range latches {
				l.broadcastCancel()
			}
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	var firstErrOnce sync.Once
	var firstErr error
	var wg sync.WaitGroup

	wg.Add(len(actions))
	for i := range actions {
		task := func(i int) func() {
			return func() {
				defer wg.Done()
				defer latches[i].signal(nil)

				name := actions[i].Name()
				for _, dep := range deps[i] {
					if err := latches[dep].wait(childCtx); err != nil {
						return
					}
				}

				select {
				case <-childCtx.Done():
					return
				default:
				}

				skip := false
				for _, dep := range deps[i] {
					if failed[dep].get() != nil {
						skip = true
						break
					}
				}
				if skip {
					return
				}

				nodeErr := actions[i].Execute(childCtx)
				if nodeErr != nil {
					failed[i].set(nodeErr)
					firstErrOnce.Do(func() {
						firstErr = prependPath(name, nodeErr)
						cancel()
					})
					return
				}
				capitan.Info(ctx, SignalLocalGraphLayerDone, FieldName.Field(g.name), FieldCase.Field(name))
			}
		}(i)

		if runtime != nil {
			w := kyron.Current()
			if where != nil {
				w = where(i, actions[i])
			}
			if spawnErr := runtime.Spawn(task, w); spawnErr != nil {
				wg.Done()
				latches[i].signal(nil)
				failed[i].set(spawnErr)
				firstErrOnce.Do(func() {
					firstErr = prependPath(actions[i].Name(), spawnErr)
					cancel()
				})
				continue
			}
		} else {
			go task()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return prependPath(g.name, firstErr)
	}

	capitan.Info(ctx, SignalLocalGraphCompleted,
		FieldName.Field(g.name),
		FieldChildCount.Field(len(actions)),
		FieldDuration.Field(time.Since(start).Seconds()),
	)
	return nil
}

// nodeLatch is a reusable per-node completion broadcast: reset() starts
// a fresh generation without reallocating, signal() wakes every waiter
// of the current generation, and wait() blocks until signalled or ctx is
// done. Built on sync.Cond rather than a close-once channel because a
// node with multiple dependents needs broadcast semantics across
// repeated Execute calls, and a channel can only ever be closed once.
type nodeLatch struct {
	mu   sync.Mutex
	cond *sync.Cond
	gen  int
	done bool
}

func newNodeLatch() *nodeLatch {
	l := &nodeLatch{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *nodeLatch) reset() {
	l.mu.Lock()
	l.gen++
	l.done = false
	l.mu.Unlock()
}

func (l *nodeLatch) signal(error) {
	l.mu.Lock()
	l.done = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// wait blocks until this node's current generation is signalled, or
// broadcastCancel wakes every waiter because ctx was cancelled. Execute
// runs a single watcher goroutine per call (ctx differs every Execute,
// so it cannot be preallocated) that calls broadcastCancel on every
// latch once, rather than one watcher per dependency edge.
func (l *nodeLatch) wait(ctx context.Context) error {
	l.mu.Lock()
	gen := l.gen
	for l.gen == gen && !l.done && ctx.Err() == nil {
		l.cond.Wait()
	}
	done := l.done
	l.mu.Unlock()

	if !done {
		return ctx.Err()
	}
	return nil
}

// broadcastCancel wakes every goroutine blocked in wait without marking
// this latch done, so they re-check ctx.Err() and return.
func (l *nodeLatch) broadcastCancel() {
	l.mu.Lock()
	l.cond.Broadcast()
	l.mu.Unlock()
}

// atomicErrFlag is a reusable per-node failure marker, reset every
// Execute without reallocating.
type atomicErrFlag struct {
	mu  sync.Mutex
	err error
}

func (f *atomicErrFlag) clear() {
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
}

func (f *atomicErrFlag) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *atomicErrFlag) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Describe implements Describable.
func (g *LocalGraph) Describe() Node {
	g.mu.RLock()
	order := append([]Name(nil), g.order...)
	nodes := make(map[Name]Action, len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v
	}
	deps := make(map[Name][]Name, len(g.deps))
	for k, v := range g.deps {
		deps[k] = append([]Name(nil), v...)
	}
	g.mu.RUnlock()

	descs := make([]Node, 0, len(order))
	for _, n := range order {
		descs = append(descs, describeChild(nodes[n]))
	}
	return Node{
		Name: g.name,
		Type: "localgraph",
		Flow: LocalGraphFlow{Nodes: descs},
		Metadata: map[string]any{
			"dependencies": deps,
		},
	}
}

// Close shuts down every registered node.
func (g *LocalGraph) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for _, action := range g.nodes {
		if err := action.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
