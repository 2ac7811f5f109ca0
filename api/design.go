package api

import (
	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/program"
)

// DesignConfigurator is the design-time half of spec.md §8: a thin
// fluent wrapper over program.Database so the action tree and its
// cross-program events are registered through one entry point.
type DesignConfigurator struct {
	db *program.Database
}

// NewDesignConfigurator creates a DesignConfigurator over a fresh
// Database.
func NewDesignConfigurator() *DesignConfigurator {
	return &DesignConfigurator{db: program.NewDatabase()}
}

// RegisterAction tags action under name, returning its OrchestrationTag.
func (d *DesignConfigurator) RegisterAction(name string, action orchestration.Action) (program.OrchestrationTag, error) {
	return d.db.RegisterAction(name, action)
}

// RegisterInvocable tags invocable under name in the invocable registry.
// It is inert until a deployment binds it to a worker with
// BindInvocableWorker (spec.md §4.8).
func (d *DesignConfigurator) RegisterInvocable(name string, invocable orchestration.Invocable) (program.OrchestrationTag, error) {
	return d.db.RegisterInvocable(name, invocable)
}

// RegisterCondition tags a Condition under name in the condition
// registry, for IfElse branches built later (directly, or through a
// file-config loader resolving "cond" by name).
func (d *DesignConfigurator) RegisterCondition(name string, condition orchestration.Condition) (program.OrchestrationTag, error) {
	return d.db.RegisterCondition(name, condition)
}

// RegisterDiscriminator tags a Discriminator under name in the condition
// registry, for Switch dispatch built later.
func (d *DesignConfigurator) RegisterDiscriminator(name string, discriminator orchestration.Discriminator) (program.OrchestrationTag, error) {
	return d.db.RegisterDiscriminator(name, discriminator)
}

// RegisterEvent declares a named event that Trigger/Sync actions
// composed against this design can address by name. It is inert until a
// deployment binds it local or global (spec.md §4.8).
func (d *DesignConfigurator) RegisterEvent(name string) (program.OrchestrationTag, error) {
	return d.db.RegisterEvent(name)
}

// Database returns the underlying registry, for constructing a
// program.Program once a deployment is ready to bind it.
func (d *DesignConfigurator) Database() *program.Database { return d.db }
