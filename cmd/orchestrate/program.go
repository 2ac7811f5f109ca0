package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/api"
)

var programFile string

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Load an action-tree config and run it against the deployed topology",
	Long: `program exercises spec.md §6's file-config loader: it registers a
fixed set of demo invocables ("a", "b", "c"), loads --program as a
NodeConfig tree, resolves it against that registry with api.BuildAction,
and runs the resulting action tree the same way run's built-in Sequence
runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deployCfg, err := loadDeployConfig()
		if err != nil {
			return err
		}

		path := programFile
		if path == "" {
			path = viper.GetString("program")
		}
		if path == "" {
			return fmt.Errorf("orchestrate: --program is required")
		}
		nodeCfg, err := api.LoadProgramConfig(path)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		design := api.NewDesignConfigurator()

		var mu sync.Mutex
		var trace []string
		record := func(step string) func(context.Context) error {
			return func(context.Context) error {
				mu.Lock()
				trace = append(trace, step)
				mu.Unlock()
				return nil
			}
		}
		for _, step := range []string{"a", "b", "c"} {
			if _, err := design.RegisterInvocable(step, orchestration.InvocableFunc(record(step))); err != nil {
				return err
			}
		}

		built, err := api.BuildAction(nodeCfg, design.Database())
		if err != nil {
			return err
		}
		root, err := design.RegisterAction(nodeCfg.Name, built)
		if err != nil {
			return err
		}

		if runErr := api.Run(ctx, "orchestrate-program", design, deployCfg, root); runErr != nil {
			return runErr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "program completed: %v\n", trace)
		return nil
	},
}

func init() {
	programCmd.Flags().StringVar(&programFile, "program", "", "action-tree config file (yaml or json)")
	rootCmd.AddCommand(programCmd)
}
