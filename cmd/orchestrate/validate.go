package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qorix-group/inc-orchestrator/api"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a deployment config without running a program",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadDeployConfig()
		if err != nil {
			return err
		}
		runtime, err := api.NewDeploymentConfigurator(cfg).Build()
		if err != nil {
			return err
		}
		defer runtime.Shutdown(0) //nolint:errcheck

		fmt.Fprintf(cmd.OutOrStdout(), "deployment config valid: %d engine(s)\n", len(cfg.Engines))
		return nil
	},
}
