package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/kvbench/internal/agent"
	"github.com/user/kvbench/internal/config"
)

var agentFlags struct {
	bind     string
	envFile  string
	batching bool
	window   time.Duration
	maxBatch int
	poolSize int
	rps      float64
	burst    int
}

// agentCmd runs the batching agent: an HTTP proxy in front of the store that
// coalesces concurrent requests into pipelined batches.
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the batching agent HTTP proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(agentFlags.envFile)

		store := agent.NewStore(cfg.RedisAddr(), cfg.RedisPassword, agentFlags.poolSize)
		defer store.Close()

		pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			// Start anyway; the store may come up after the agent.
			slog.Warn("store unreachable at startup", "addr", cfg.RedisAddr(), "error", err)
		}

		batcher := agent.NewBatcher(agent.BatcherConfig{
			Enabled:  agentFlags.batching,
			Window:   agentFlags.window,
			MaxBatch: agentFlags.maxBatch,
		}, store.Flush)

		server := agent.NewServer(agent.ServerConfig{
			Bind:              agentFlags.bind,
			RequestsPerSecond: agentFlags.rps,
			Burst:             agentFlags.burst,
		}, batcher)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("agent server: %w", err)
		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig)
		case <-cmd.Context().Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	f := agentCmd.Flags()
	f.StringVar(&agentFlags.bind, "bind", ":8080", "listen address")
	f.StringVar(&agentFlags.envFile, "env-file", "", "optional env file with connection targets")
	f.BoolVar(&agentFlags.batching, "batching", true, "coalesce requests into pipelined batches")
	f.DurationVar(&agentFlags.window, "window", 100*time.Millisecond, "batching window")
	f.IntVar(&agentFlags.maxBatch, "max-batch", 10, "flush a batch early at this size")
	f.IntVar(&agentFlags.poolSize, "pool-size", 10, "store connection pool size")
	f.Float64Var(&agentFlags.rps, "rps", 0, "optional request throttle, requests per second (0 disables)")
	f.IntVar(&agentFlags.burst, "burst", 0, "throttle burst size (default rps)")
}
