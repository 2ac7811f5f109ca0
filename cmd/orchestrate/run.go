package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/api"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Deploy the configured topology and run the built-in smoke-test program",
	Long: `run exercises the deployment end to end: it builds a Runtime from
--config and runs a three-step Sequence against it, the same program
shape as spec.md's single-sequence acceptance scenario. A real
deployment wires its own design through the api package directly rather
than through this flag-driven smoke test; run exists so the CLI wrapper
itself has something to prove it end to end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadDeployConfig()
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

		seq := orchestration.NewSequence("smoke-test",
			orchestration.InvokeAction("a", record("a")),
			orchestration.InvokeAction("b", record("b")),
			orchestration.InvokeAction("c", record("c")),
		)
		root, err := design.RegisterAction("smoke-test", seq)
		if err != nil {
			return err
		}

		if runErr := api.Run(ctx, "orchestrate-smoke-test", design, cfg, root); runErr != nil {
			return runErr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "program completed: %v\n", trace)
		return nil
	},
}
