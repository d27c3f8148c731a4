package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/kvbench/internal/config"
	"github.com/user/kvbench/internal/workload"
)

var unitEnvFile string

// unitCmd is the benchmark unit itself: one JSON parameter object in on
// stdin, one JSON report out on stdout. It is what the run command invokes,
// in-process or as a deployed executable.
var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Run one benchmark unit, reading parameters from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(unitEnvFile)

		base := workload.DefaultParams()
		base.RedisHost = cfg.RedisHost
		base.RedisPort = cfg.RedisPort
		base.RedisPassword = cfg.RedisPassword
		base.AgentHost = cfg.AgentHost
		base.AgentPort = cfg.AgentPort

		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if len(raw) == 0 {
			raw = []byte("{}")
		}

		params, err := workload.ParseParams(raw, base)
		if err != nil {
			return writeReport(workload.UnitReport{
				StatusCode: 500,
				Results:    []workload.Result{},
				Error:      err.Error(),
			})
		}

		return writeReport(workload.RunUnit(cmd.Context(), params))
	},
}

func init() {
	unitCmd.Flags().StringVar(&unitEnvFile, "env-file", "", "optional env file with connection targets")
}

func writeReport(report workload.UnitReport) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(report)
}
