package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qorix-group/inc-orchestrator/kyron"
	"github.com/qorix-group/inc-orchestrator/program"
)

// ErrDeploymentIncomplete mirrors program.ErrDeploymentIncomplete for
// callers that only import api.
var ErrDeploymentIncomplete = program.ErrDeploymentIncomplete

// Run composes the full spec.md §8 lifecycle: build the Runtime from
// deployConfig, construct a Program rooted at root against design's
// Database, deploy it, run it to completion, then drain the Runtime with
// the config's shutdown deadline. Run always attempts the shutdown drain,
// even when the program itself failed, joining both errors if both occur.
func Run(ctx context.Context, name string, design *DesignConfigurator, deployConfig DeploymentConfig, root program.OrchestrationTag) error {
	deployer := NewDeploymentConfigurator(deployConfig)
	runtime, err := deployer.Build()
	if err != nil {
		return err
	}

	db := design.Database()
	if err := deployer.BindDatabase(db, runtime); err != nil {
		_ = runtime.Shutdown(deployConfig.ShutdownDuration())
		return err
	}
	if unbound := db.Unbound(); len(unbound) > 0 {
		_ = runtime.Shutdown(deployConfig.ShutdownDuration())
		return fmt.Errorf("%w: %s", ErrDeploymentIncomplete, strings.Join(unbound, ", "))
	}

	prog := program.New(name, db, root)
	prog.Deploy(runtime, kyron.Current())

	runErr := prog.Run(ctx)
	shutErr := prog.Shutdown(deployConfig.ShutdownDuration())
	return errors.Join(runErr, shutErr)
}
