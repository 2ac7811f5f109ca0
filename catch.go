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

// Observability constants for the Catch action.
const (
	CatchProcessedTotal    = metricz.Key("catch.processed.total")
	CatchErrorsTotal       = metricz.Key("catch.errors.total")
	CatchHandlerErrorTotal = metricz.Key("catch.handler.errors.total")

	CatchProcessSpan = tracez.Key("catch.process")
	CatchHandlerSpan = tracez.Key("catch.handler")

	CatchTagHasError     = tracez.Tag("catch.has_error")
	CatchTagRecovered    = tracez.Tag("catch.recovered")
	CatchTagHandlerError = tracez.Tag("catch.handler_error")

	CatchEventError        = hookz.Key("catch.error")
	CatchEventRecovered    = hookz.Key("catch.recovered")
	CatchEventUnrecovered  = hookz.Key("catch.unrecovered")
	CatchEventHandlerError = hookz.Key("catch.handler_error")
)

// CatchEvent is emitted via hookz whenever Catch observes, recovers from,
// or fails to recover from a child error.
type CatchEvent struct {
	Name        Name
	ChildName   Name
	Error       error
	HandlerName Name
	Recovered   bool
	HandlerErr  error
	Duration    time.Duration
	Timestamp   time.Time
}

// ErrorMatcher decides whether Catch's handler should run for a given
// error. MatchAny matches every error.
type ErrorMatcher func(error) bool

// MatchAny matches any non-nil error.
func MatchAny(error) bool { return true }

// MatchSentinel builds a matcher that reports true when the observed
// error wraps target (via errors.Is).
func MatchSentinel(target error) ErrorMatcher {
	return func(err error) bool { return errors.Is(err, target) }
}

// CatchHandler is the recovery action Catch runs against a matched error.
// Recoverable determines what the parent of Catch ultimately observes:
// a recoverable handler absorbs the error (the parent sees success), a
// non-recoverable handler still runs (for logging, cleanup, compensation)
// but the original error is re-raised to the parent afterward (spec.md
// §4.7: "Catch ... Recoverable -> caller sees Ok; NonRecoverable ->
// caller still sees the original error").
type CatchHandler struct {
	name        Name
	recoverable bool
	fn          func(ctx context.Context, cause error) error
}

// RecoverableHandler builds a CatchHandler that, once it runs without
// erroring itself, causes Catch to report success to its parent.
func RecoverableHandler(name Name, fn func(ctx context.Context, cause error) error) *CatchHandler {
	return &CatchHandler{name: name, recoverable: true, fn: fn}
}

// NonRecoverableHandler builds a CatchHandler that runs for its side
// effects only; Catch always re-raises the original error afterward.
func NonRecoverableHandler(name Name, fn func(ctx context.Context, cause error) error) *CatchHandler {
	return &CatchHandler{name: name, recoverable: false, fn: fn}
}

// Catch runs a child action and, when it fails with an error the matcher
// accepts, routes that error to a recovery handler (spec.md §4.7). Errors
// the matcher rejects propagate unchanged, without running the handler.
type Catch struct {
	name    Name
	child   Action
	matcher ErrorMatcher
	handler *CatchHandler
	mu      sync.RWMutex
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[CatchEvent]
}

// NewCatch creates a Catch action wrapping child, routing matched errors
// to handler.
func NewCatch(name Name, child Action, matcher ErrorMatcher, handler *CatchHandler) *Catch {
	metrics := metricz.New()
	metrics.Counter(CatchProcessedTotal)
	metrics.Counter(CatchErrorsTotal)
	metrics.Counter(CatchHandlerErrorTotal)

	if matcher == nil {
		matcher = MatchAny
	}

	return &Catch{
		name:    name,
		child:   child,
		matcher: matcher,
		handler: handler,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[CatchEvent](),
	}
}

// Name returns the action's name.
func (c *Catch) Name() Name { return c.name }

// Shape reports that Catch runs exactly one child (and, on failure, one
// handler) at a time.
func (c *Catch) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 1, BufferSlots: 1}
}

// Execute runs the child. If it fails and the matcher accepts the error,
// the handler runs; a recoverable handler causes Execute to return nil,
// a non-recoverable handler still lets the original error propagate.
func (c *Catch) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, c.name)

	c.metrics.Counter(CatchProcessedTotal).Inc()

	ctx, span := c.tracer.StartSpan(ctx, CatchProcessSpan)
	defer span.Finish()

	c.mu.RLock()
	child := c.child
	matcher := c.matcher
	handler := c.handler
	c.mu.RUnlock()

	childErr := child.Execute(ctx)
	if childErr == nil {
		span.SetTag(CatchTagHasError, "false")
		return nil
	}

	span.SetTag(CatchTagHasError, "true")
	c.metrics.Counter(CatchErrorsTotal).Inc()

	_ = c.hooks.Emit(ctx, CatchEventError, CatchEvent{ //nolint:errcheck
		Name:      c.name,
		ChildName: child.Name(),
		Error:     childErr,
		Timestamp: time.Now(),
	})

	if handler == nil || !matcher(childErr) {
		return prependPath(c.name, childErr)
	}

	handlerCtx, handlerSpan := c.tracer.StartSpan(ctx, CatchHandlerSpan)
	start := time.Now()
	handlerErr := handler.fn(handlerCtx, childErr)
	duration := time.Since(start)

	if handlerErr != nil {
		c.metrics.Counter(CatchHandlerErrorTotal).Inc()
		handlerSpan.SetTag(CatchTagHandlerError, handlerErr.Error())
		_ = c.hooks.Emit(ctx, CatchEventHandlerError, CatchEvent{ //nolint:errcheck
			Name:        c.name,
			ChildName:   child.Name(),
			Error:       childErr,
			HandlerName: handler.name,
			HandlerErr:  handlerErr,
			Duration:    duration,
			Timestamp:   time.Now(),
		})
	}
	handlerSpan.Finish()

	if handler.recoverable && handlerErr == nil {
		span.SetTag(CatchTagRecovered, "true")
		_ = c.hooks.Emit(ctx, CatchEventRecovered, CatchEvent{ //nolint:errcheck
			Name:        c.name,
			ChildName:   child.Name(),
			Error:       childErr,
			HandlerName: handler.name,
			Recovered:   true,
			Duration:    duration,
			Timestamp:   time.Now(),
		})
		return nil
	}

	span.SetTag(CatchTagRecovered, "false")
	_ = c.hooks.Emit(ctx, CatchEventUnrecovered, CatchEvent{ //nolint:errcheck
		Name:        c.name,
		ChildName:   child.Name(),
		Error:       childErr,
		HandlerName: handler.name,
		Recovered:   false,
		HandlerErr:  handlerErr,
		Duration:    duration,
		Timestamp:   time.Now(),
	})
	return prependPath(c.name, childErr)
}

// Metrics returns the metrics registry for this action.
func (c *Catch) Metrics() *metricz.Registry { return c.metrics }

// Tracer returns the tracer for this action.
func (c *Catch) Tracer() *tracez.Tracer { return c.tracer }

// OnError registers a handler invoked whenever the child fails, before
// the recovery handler runs.
func (c *Catch) OnError(handler func(context.Context, CatchEvent) error) error {
	_, err := c.hooks.Hook(CatchEventError, handler)
	return err
}

// OnRecovered registers a handler invoked when the recovery handler
// absorbed the error.
func (c *Catch) OnRecovered(handler func(context.Context, CatchEvent) error) error {
	_, err := c.hooks.Hook(CatchEventRecovered, handler)
	return err
}

// OnUnrecovered registers a handler invoked when the original error was
// re-raised to the parent.
func (c *Catch) OnUnrecovered(handler func(context.Context, CatchEvent) error) error {
	_, err := c.hooks.Hook(CatchEventUnrecovered, handler)
	return err
}

// Describe implements Describable.
func (c *Catch) Describe() Node {
	c.mu.RLock()
	child := c.child
	handler := c.handler
	c.mu.RUnlock()

	flow := CatchFlow{Child: describeChild(child)}
	if handler != nil {
		flow.HandlerName = handler.name
		flow.Recoverable = handler.recoverable
	}
	return Node{Name: c.name, Type: "catch", Flow: flow}
}

// Close shuts down observability components and the wrapped child.
func (c *Catch) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	if err := c.child.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.tracer != nil {
		c.tracer.Close()
	}
	c.hooks.Close()
	return errors.Join(errs...)
}
