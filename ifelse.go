package orchestration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for IfElse, grounded on the teacher's Filter
// connector (condition evaluated once, branches to a child action).
const (
	IfElseEvaluatedTotal = metricz.Key("ifelse.evaluated.total")
	IfElseThenTotal      = metricz.Key("ifelse.then.total")
	IfElseElseTotal      = metricz.Key("ifelse.else.total")

	IfElseProcessSpan = tracez.Key("ifelse.process")

	IfElseTagBranch  = tracez.Tag("ifelse.branch")
	IfElseTagSuccess = tracez.Tag("ifelse.success")

	IfElseEventBranchTaken = hookz.Key("ifelse.branch-taken")
)

// IfElseEvent is emitted via hookz reporting which branch IfElse took.
type IfElseEvent struct {
	Name      Name
	Branch    string
	Success   bool
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// IfElse evaluates a Condition once and runs its Then child if true, or
// its Else child (if any) otherwise (spec.md §4.7: "IfElse evaluates a
// Boolean condition once and dispatches to the matching branch"). With
// no Else child and a false condition, IfElse is a no-op success.
type IfElse struct {
	name      Name
	condition Condition
	then      Action
	els       Action
	mu        sync.RWMutex
	metrics   *metricz.Registry
	tracer    *tracez.Tracer
	hooks     *hookz.Hooks[IfElseEvent]
}

// NewIfElse creates an IfElse dispatching to then or els based on
// condition.
func NewIfElse(name Name, condition Condition, then Action, els Action) *IfElse {
	metrics := metricz.New()
	metrics.Counter(IfElseEvaluatedTotal)
	metrics.Counter(IfElseThenTotal)
	metrics.Counter(IfElseElseTotal)

	return &IfElse{
		name:      name,
		condition: condition,
		then:      then,
		els:       els,
		metrics:   metrics,
		tracer:    tracez.New(),
		hooks:     hookz.New[IfElseEvent](),
	}
}

// Name returns the action's name.
func (i *IfElse) Name() Name { return i.name }

// Shape reports that IfElse runs exactly one branch at a time.
func (i *IfElse) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 1, BufferSlots: 1}
}

// Execute evaluates the condition once and runs the matching branch.
func (i *IfElse) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, i.name)

	i.metrics.Counter(IfElseEvaluatedTotal).Inc()
	start := time.Now()

	ctx, span := i.tracer.StartSpan(ctx, IfElseProcessSpan)
	defer span.Finish()

	i.mu.RLock()
	condition := i.condition
	then := i.then
	els := i.els
	i.mu.RUnlock()

	taken := condition.Compute(ctx)

	branch := "else"
	action := els
	if taken {
		branch = "then"
		action = then
		i.metrics.Counter(IfElseThenTotal).Inc()
	} else {
		i.metrics.Counter(IfElseElseTotal).Inc()
	}
	span.SetTag(IfElseTagBranch, branch)

	if action == nil {
		span.SetTag(IfElseTagSuccess, "true")
		_ = i.hooks.Emit(ctx, IfElseEventBranchTaken, IfElseEvent{ //nolint:errcheck
			Name: i.name, Branch: branch, Success: true,
			Duration: time.Since(start), Timestamp: time.Now(),
		})
		return nil
	}

	branchErr := action.Execute(ctx)
	_ = i.hooks.Emit(ctx, IfElseEventBranchTaken, IfElseEvent{ //nolint:errcheck
		Name: i.name, Branch: branch, Success: branchErr == nil, Error: branchErr,
		Duration: time.Since(start), Timestamp: time.Now(),
	})

	if branchErr != nil {
		span.SetTag(IfElseTagSuccess, "false")
		return prependPath(i.name, branchErr)
	}
	span.SetTag(IfElseTagSuccess, "true")
	return nil
}

// Metrics returns the metrics registry for this action.
func (i *IfElse) Metrics() *metricz.Registry { return i.metrics }

// Tracer returns the tracer for this action.
func (i *IfElse) Tracer() *tracez.Tracer { return i.tracer }

// OnBranchTaken registers a handler invoked after each evaluation,
// reporting which branch ran.
func (i *IfElse) OnBranchTaken(handler func(context.Context, IfElseEvent) error) error {
	_, err := i.hooks.Hook(IfElseEventBranchTaken, handler)
	return err
}

// Describe implements Describable.
func (i *IfElse) Describe() Node {
	i.mu.RLock()
	then := i.then
	els := i.els
	i.mu.RUnlock()

	flow := IfElseFlow{Then: describeChild(then)}
	if els != nil {
		e := describeChild(els)
		flow.Else = &e
	}
	return Node{Name: i.name, Type: "ifelse", Flow: flow}
}

// Close shuts down observability components and both branches.
func (i *IfElse) Close() error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var errs []error
	if i.then != nil {
		if err := i.then.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if i.els != nil {
		if err := i.els.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if i.tracer != nil {
		i.tracer.Close()
	}
	i.hooks.Close()
	return errors.Join(errs...)
}
