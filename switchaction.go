package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the Switch action.
const (
	SwitchProcessedTotal = metricz.Key("switch.processed.total")
	SwitchDispatchedTotal = metricz.Key("switch.dispatched.total")
	SwitchMissTotal        = metricz.Key("switch.miss.total")
	SwitchDurationMs        = metricz.Key("switch.duration.ms")

	SwitchProcessSpan = tracez.Key("switch.process")

	SwitchTagDiscriminator = tracez.Tag("switch.discriminator")
	SwitchTagDispatched    = tracez.Tag("switch.dispatched")
	SwitchTagSuccess       = tracez.Tag("switch.success")
	SwitchTagError         = tracez.Tag("switch.error")

	SwitchEventDispatched = hookz.Key("switch.dispatched")
	SwitchEventMiss       = hookz.Key("switch.miss")
)

// SwitchEvent is emitted via hookz on every Switch.Execute, reporting the
// routing decision that was made.
type SwitchEvent struct {
	Name          Name
	Discriminator uint64
	CaseName      Name
	Dispatched    bool
	Success       bool
	Error         error
	Duration      time.Duration
	Timestamp     time.Time
}

// Switch dispatches to one of several registered cases based on a
// Discriminator's return value (spec.md §4.7: "Switch evaluates a Complex
// condition once and dispatches to the matching case"). Unlike pipz's
// Switch — where an unmatched route passes the input through unchanged —
// an Action carries no payload to pass through, so a miss with no
// registered default is a hard failure (ErrSwitchMiss): spec.md's data
// model has no silent no-op path for a composed task tree.
type Switch struct {
	name          Name
	discriminator Discriminator
	cases         map[uint64]Action
	defaultCase   Action
	mu            sync.RWMutex
	metrics       *metricz.Registry
	tracer        *tracez.Tracer
	hooks         *hookz.Hooks[SwitchEvent]
}

// NewSwitch creates a Switch dispatching on the given discriminator.
func NewSwitch(name Name, discriminator Discriminator) *Switch {
	metrics := metricz.New()
	metrics.Counter(SwitchProcessedTotal)
	metrics.Counter(SwitchDispatchedTotal)
	metrics.Counter(SwitchMissTotal)
	metrics.Gauge(SwitchDurationMs)

	return &Switch{
		name:          name,
		discriminator: discriminator,
		cases:         make(map[uint64]Action),
		metrics:       metrics,
		tracer:        tracez.New(),
		hooks:         hookz.New[SwitchEvent](),
	}
}

// Name returns the action's name.
func (s *Switch) Name() Name { return s.name }

// Shape reports that a switch runs exactly one case at a time.
func (s *Switch) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 1, BufferSlots: 1}
}

// AddCase registers the action to run when the discriminator yields key.
func (s *Switch) AddCase(key uint64, action Action) *Switch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[key] = action
	return s
}

// SetDefault registers the action to run when no case matches.
func (s *Switch) SetDefault(action Action) *Switch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultCase = action
	return s
}

// RemoveCase removes a registered case.
func (s *Switch) RemoveCase(key uint64) *Switch {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cases, key)
	return s
}

// HasCase reports whether a case is registered for key.
func (s *Switch) HasCase(key uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cases[key]
	return ok
}

// Execute evaluates the discriminator once and runs the matching case, or
// the default case if none matches. If neither a matching case nor a
// default is registered, Execute returns a RuntimeError wrapping
// ErrSwitchMiss.
func (s *Switch) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, s.name)

	s.metrics.Counter(SwitchProcessedTotal).Inc()
	start := time.Now()

	ctx, span := s.tracer.StartSpan(ctx, SwitchProcessSpan)
	defer func() {
		elapsed := time.Since(start)
		s.metrics.Gauge(SwitchDurationMs).Set(float64(elapsed.Milliseconds()))
		if err == nil {
			span.SetTag(SwitchTagSuccess, "true")
		} else {
			span.SetTag(SwitchTagSuccess, "false")
			span.SetTag(SwitchTagError, err.Error())
		}
		span.Finish()
	}()

	s.mu.RLock()
	key := s.discriminator.Discriminate(ctx)
	action, matched := s.cases[key]
	defaultCase := s.defaultCase
	s.mu.RUnlock()

	span.SetTag(SwitchTagDiscriminator, fmt.Sprintf("%d", key))

	if !matched {
		if defaultCase == nil {
			s.metrics.Counter(SwitchMissTotal).Inc()
			span.SetTag(SwitchTagDispatched, "false")
			_ = s.hooks.Emit(ctx, SwitchEventMiss, SwitchEvent{ //nolint:errcheck
				Name:          s.name,
				Discriminator: key,
				Dispatched:    false,
				Timestamp:     time.Now(),
			})
			return prependPath(s.name, &RuntimeError{Err: fmt.Errorf("%w: discriminator %d", ErrSwitchMiss, key)})
		}
		action = defaultCase
	}

	span.SetTag(SwitchTagDispatched, "true")
	s.metrics.Counter(SwitchDispatchedTotal).Inc()

	caseStart := time.Now()
	caseErr := action.Execute(ctx)
	caseDuration := time.Since(caseStart)

	_ = s.hooks.Emit(ctx, SwitchEventDispatched, SwitchEvent{ //nolint:errcheck
		Name:          s.name,
		Discriminator: key,
		CaseName:      action.Name(),
		Dispatched:    true,
		Success:       caseErr == nil,
		Error:         caseErr,
		Duration:      caseDuration,
		Timestamp:     time.Now(),
	})

	if caseErr != nil {
		var kerr *KernelError
		if errors.As(caseErr, &kerr) {
			kerr.Path = append([]Name{s.name}, kerr.Path...)
			return kerr
		}
		return prependPath(s.name, caseErr)
	}
	return nil
}

// Metrics returns the metrics registry for this action.
func (s *Switch) Metrics() *metricz.Registry { return s.metrics }

// Tracer returns the tracer for this action.
func (s *Switch) Tracer() *tracez.Tracer { return s.tracer }

// OnDispatched registers a handler for every successful dispatch (matched
// case or default).
func (s *Switch) OnDispatched(handler func(context.Context, SwitchEvent) error) error {
	_, err := s.hooks.Hook(SwitchEventDispatched, handler)
	return err
}

// OnMiss registers a handler for every SwitchMiss.
func (s *Switch) OnMiss(handler func(context.Context, SwitchEvent) error) error {
	_, err := s.hooks.Hook(SwitchEventMiss, handler)
	return err
}

// Describe implements Describable.
func (s *Switch) Describe() Node {
	s.mu.RLock()
	cases := make(map[uint64]Action, len(s.cases))
	for k, v := range s.cases {
		cases[k] = v
	}
	defaultCase := s.defaultCase
	s.mu.RUnlock()

	flow := SwitchFlow{Cases: make(map[string]Node, len(cases))}
	for k, v := range cases {
		flow.Cases[fmt.Sprintf("%d", k)] = describeChild(v)
	}
	if defaultCase != nil {
		d := describeChild(defaultCase)
		flow.Default = &d
	}
	return Node{Name: s.name, Type: "switch", Flow: flow}
}

// Close shuts down observability components and the registered cases.
func (s *Switch) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for _, c := range s.cases {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.defaultCase != nil {
		if err := s.defaultCase.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.tracer != nil {
		s.tracer.Close()
	}
	s.hooks.Close()
	return errors.Join(errs...)
}
