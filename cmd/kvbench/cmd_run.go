package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/user/kvbench/internal/bench"
	"github.com/user/kvbench/internal/config"
	"github.com/user/kvbench/internal/observability"
	"github.com/user/kvbench/internal/workload"
)

var runFlags struct {
	invocations int
	rate        int
	mode        string
	output      string
	envFile     string

	otel         bool
	otelEndpoint string

	numOps    int
	operation string
	batching  bool
	parallel  int
	keyPrefix string
}

// runCmd drives the full benchmark: repeated unit invocations at a target
// rate, then an aggregate latency report. In-process mode runs the unit in
// this binary; exec mode invokes an external command (a deployed unit) per
// invocation, passing the parameter object on its stdin.
var runCmd = &cobra.Command{
	Use:   "run [-- command args...]",
	Short: "Run the benchmark loop and print the aggregate latency report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(runFlags.envFile)

		shutdown, err := observability.InitTracer(runFlags.otel, "kvbench", runFlags.otelEndpoint)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}()

		params := workload.DefaultParams()
		params.NumOps = runFlags.numOps
		params.OperationType = workload.Kind(runFlags.operation)
		params.UseBatching = runFlags.batching
		params.ParallelCalls = runFlags.parallel
		params.KeyPrefix = runFlags.keyPrefix
		params.RedisHost = cfg.RedisHost
		params.RedisPort = cfg.RedisPort
		params.RedisPassword = cfg.RedisPassword
		params.AgentHost = cfg.AgentHost
		params.AgentPort = cfg.AgentPort

		invoker, err := buildInvoker(params, args)
		if err != nil {
			return err
		}

		controller := bench.NewController(bench.Config{
			Invocations: runFlags.invocations,
			Rate:        runFlags.rate,
		}, invoker)

		invocations := controller.Run(cmd.Context())
		report := bench.Aggregate(invocations)

		fmt.Print(report.String())

		if runFlags.output != "" {
			if err := report.WriteFile(runFlags.output); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			slog.Info("report written", "path", runFlags.output)
		}
		return nil
	},
}

func buildInvoker(params workload.Params, args []string) (bench.Invoker, error) {
	switch runFlags.mode {
	case "inprocess":
		return bench.FuncInvoker{
			Run: func(ctx context.Context) workload.UnitReport {
				return workload.RunUnit(ctx, params)
			},
		}, nil
	case "exec":
		if len(args) == 0 {
			return nil, fmt.Errorf("exec mode needs a command after --")
		}
		stdin, err := params.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		return bench.ExecInvoker{
			Command: args[0],
			Args:    args[1:],
			Stdin:   stdin,
		}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q (want inprocess or exec)", runFlags.mode)
	}
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.invocations, "invocations", 100, "total unit invocations to submit")
	f.IntVar(&runFlags.rate, "rate", 10, "invocations submitted per second")
	f.StringVar(&runFlags.mode, "mode", "inprocess", "how to invoke the unit: inprocess or exec")
	f.StringVar(&runFlags.output, "output", "", "optional path for the JSON report")
	f.StringVar(&runFlags.envFile, "env-file", "", "optional env file with connection targets")

	f.BoolVar(&runFlags.otel, "otel", false, "emit OpenTelemetry spans per invocation")
	f.StringVar(&runFlags.otelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint (default stdout exporter)")

	f.IntVar(&runFlags.numOps, "num-ops", 1, "key-value operations per invocation")
	f.StringVar(&runFlags.operation, "operation", "get", "operation type: get, set, del or exists")
	f.BoolVar(&runFlags.batching, "batching", false, "route operations through the batching agent")
	f.IntVar(&runFlags.parallel, "parallel", 1, "parallel workers inside each invocation")
	f.StringVar(&runFlags.keyPrefix, "key-prefix", "test_key", "key prefix for generated operations")
}
