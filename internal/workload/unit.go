package workload

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/user/kvbench/internal/proxy"
	"github.com/user/kvbench/internal/resp"
)

// maxReportedResults caps the per-operation records carried in a unit report
// so the response stays transportable; counts always cover the full run.
const maxReportedResults = 10

// UnitReport is the unit's JSON output, one object per invocation.
type UnitReport struct {
	StatusCode       int      `json:"statusCode"`
	ExecutionTimeMs  float64  `json:"execution_time_ms"`
	NumOps           int      `json:"num_ops"`
	OperationType    Kind     `json:"operation_type"`
	ParallelCalls    int      `json:"parallel_calls"`
	UseBatching      bool     `json:"use_batching"`
	RedisAddr        string   `json:"redis_addr,omitempty"`
	AgentURL         string   `json:"agent_url,omitempty"`
	SuccessCount     int      `json:"success_count"`
	Results          []Result `json:"results"`
	ResultsTruncated bool     `json:"results_truncated,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// RunUnit executes one full benchmark unit: connection pre-flight, the
// partitioned workload, and report assembly. Operation-level failures land in
// the per-operation results; only a total inability to reach the target (a
// failed direct-mode ping) fails the whole unit with statusCode 500.
func RunUnit(ctx context.Context, p Params) UnitReport {
	start := time.Now()

	report := UnitReport{
		StatusCode:    200,
		NumOps:        p.NumOps,
		OperationType: p.OperationType,
		ParallelCalls: p.ParallelCalls,
		UseBatching:   p.UseBatching,
		Results:       []Result{},
	}

	var factory ExecutorFactory
	if p.UseBatching {
		agentURL := "http://" + net.JoinHostPort(p.AgentHost, p.AgentPort)
		report.AgentURL = agentURL

		client := proxy.New(agentURL)
		if err := client.Health(ctx); err != nil {
			// The agent may still serve operations; health is advisory.
			slog.Warn("agent health probe failed", "url", agentURL, "error", err)
		} else {
			slog.Debug("agent reachable", "url", agentURL)
		}
		shared := ProxyExecutor{Client: client}
		factory = func(int) (Executor, func(), error) {
			return shared, nil, nil
		}
	} else {
		addr := net.JoinHostPort(p.RedisHost, p.RedisPort)
		report.RedisAddr = addr

		cfg := resp.Config{
			Addr:       addr,
			Password:   p.RedisPassword,
			MaxRetries: resp.DefaultMaxRetries,
		}

		// Pre-flight on a probe connection. The workload itself hands every
		// worker its own connection.
		probe := resp.New(cfg)
		if err := probe.Connect(); err == nil {
			err = probe.Ping()
			probe.Close()
			if err != nil {
				report.StatusCode = 500
				report.Error = "store ping failed: " + err.Error()
				report.ExecutionTimeMs = sinceMs(start)
				return report
			}
		} else {
			report.StatusCode = 500
			report.Error = "store connect failed: " + err.Error()
			report.ExecutionTimeMs = sinceMs(start)
			return report
		}

		factory = func(int) (Executor, func(), error) {
			c := resp.New(cfg)
			if err := c.Connect(); err != nil {
				return nil, nil, err
			}
			return DirectExecutor{Client: c}, c.Close, nil
		}
	}

	slog.Debug("running workload",
		"ops", p.NumOps, "workers", p.ParallelCalls,
		"kind", p.OperationType, "batching", p.UseBatching)

	run := Run(ctx, p.OperationType, p.KeyPrefix, p.NumOps, p.ParallelCalls, factory)

	report.SuccessCount = run.SuccessCount
	report.Results = run.Results
	if len(report.Results) > maxReportedResults {
		report.Results = report.Results[:maxReportedResults]
		report.ResultsTruncated = true
	}
	report.ExecutionTimeMs = sinceMs(start)
	return report
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
