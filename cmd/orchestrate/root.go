package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/api"
	"github.com/qorix-group/inc-orchestrator/program"
)

const (
	exitOK                  = 0
	exitBuildError          = 1
	exitDeploymentIncomplete = 2
	exitRuntimeError        = 3
	exitSignalShutdown      = 130
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Deploy and run a composed orchestration program",
	Long: `orchestrate loads a deployment config describing engine topology and
runs a composed program against it, reporting spec-mandated exit codes:
0 success, 1 build error, 2 deployment incomplete, 3 runtime error, 130
signal-driven shutdown.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "deployment config file (yaml or json)")
	rootCmd.AddCommand(validateCmd, runCmd)

	viper.SetEnvPrefix("ORCHESTRATE")
	viper.AutomaticEnv()
}

func loadDeployConfig() (api.DeploymentConfig, error) {
	path := cfgFile
	if path == "" {
		path = viper.GetString("config")
	}
	if path == "" {
		return api.DeploymentConfig{}, errors.New("orchestrate: --config is required")
	}
	return api.LoadConfig(path)
}

// exitCodeFor maps an error returned from api.Run (or config loading) to
// the exit codes spec.md §6 mandates.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, api.ErrDeploymentIncomplete) || errors.Is(err, program.ErrDeploymentIncomplete) {
		return exitDeploymentIncomplete
	}
	var buildErr *orchestration.BuildError
	if errors.As(err, &buildErr) {
		return exitBuildError
	}
	var runtimeErr *orchestration.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitRuntimeError
	}
	var kernelErr *orchestration.KernelError
	if errors.As(err, &kernelErr) {
		if kernelErr.IsCanceled() {
			return exitSignalShutdown
		}
		return exitRuntimeError
	}
	return exitBuildError
}
