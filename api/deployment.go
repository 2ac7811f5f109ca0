package api

import (
	"errors"
	"fmt"

	"github.com/qorix-group/inc-orchestrator/kyron"
	"github.com/qorix-group/inc-orchestrator/program"
)

// DeploymentConfigurator is the deployment-time half of spec.md §8: it
// turns a DeploymentConfig (the Runtime topology) into a running
// kyron.Runtime, independent of whatever action tree a
// DesignConfigurator composed. The same DeploymentConfig can stand up
// a Runtime for any design whose resource shape fits it.
type DeploymentConfigurator struct {
	cfg DeploymentConfig
}

// NewDeploymentConfigurator wraps cfg.
func NewDeploymentConfigurator(cfg DeploymentConfig) *DeploymentConfigurator {
	return &DeploymentConfigurator{cfg: cfg}
}

// Build constructs and starts a Runtime from the wrapped config. Engine
// build errors from every engine are collected before returning, the
// same "report everything wrong at bring-up" posture kyron.EngineBuilder
// itself uses.
func (d *DeploymentConfigurator) Build() (*kyron.Runtime, error) {
	if len(d.cfg.Engines) == 0 {
		return nil, fmt.Errorf("api: deployment config declares no engines")
	}

	engines := make([]*kyron.Engine, 0, len(d.cfg.Engines))
	var errs []error
	for _, ec := range d.cfg.Engines {
		b := kyron.NewEngineBuilder(ec.ID).
			WithAsyncWorkers(maxInt(ec.AsyncWorkers, 1)).
			WithWorkerParameters(ec.Priority, ec.Affinity).
			WithIODriver(ec.IODriver)

		if ec.TaskQueueSize > 0 {
			b = b.WithTaskQueueSize(ec.TaskQueueSize)
		}

		specs := make([]kyron.DedicatedWorkerSpec, 0, len(ec.DedicatedWorkers))
		for _, dw := range ec.DedicatedWorkers {
			specs = append(specs, kyron.DedicatedWorkerSpec{ID: dw.ID, Priority: dw.Priority, Affinity: dw.Affinity})
		}
		if len(specs) > 0 {
			b = b.WithDedicatedWorkers(specs...)
		}

		engine, err := b.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("api: building engine %q: %w", ec.ID, err))
			continue
		}
		engines = append(engines, engine)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	runtime := kyron.NewRuntime(engines...)
	runtime.Start()
	return runtime, nil
}

// BindDatabase resolves the config's Invocables and Events bindings
// against db and runtime, calling program.Database.BindInvocableWorker
// and BindLocalEvent for each (spec.md §4.8). An invocable binding with
// no WorkerID routes to its engine's async pool via kyron.OnEngine;
// a non-empty WorkerID routes to that dedicated worker via
// kyron.OnWorker. Global event bindings aren't expressible from a
// config file (eventbus.Transport isn't file-serializable) — a
// deployment needing one calls db.BindGlobalEvent directly instead.
//
// BindDatabase does not itself validate completeness; api.Run calls
// db.Unbound() afterward to catch anything this step didn't cover.
func (d *DeploymentConfigurator) BindDatabase(db *program.Database, runtime *kyron.Runtime) error {
	for _, ib := range d.cfg.Invocables {
		tag := program.NewTag(ib.Name)
		var where kyron.Where
		if ib.WorkerID != "" {
			where = kyron.OnWorker(ib.EngineID, ib.WorkerID)
		} else {
			where = kyron.OnEngine(ib.EngineID)
		}
		if _, err := db.BindInvocableWorker(tag, runtime, where); err != nil {
			return fmt.Errorf("api: binding invocable %q: %w", ib.Name, err)
		}
	}

	for _, eb := range d.cfg.Events {
		if eb.Kind != "" && eb.Kind != "local" {
			return fmt.Errorf("api: event %q: config loader can only bind kind %q, got %q", eb.Name, "local", eb.Kind)
		}
		tag := program.NewTag(eb.Name)
		if _, err := db.BindLocalEvent(tag); err != nil {
			return fmt.Errorf("api: binding event %q: %w", eb.Name, err)
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
