// Package bench drives repeated invocations of the benchmark unit at a
// target rate and aggregates their timings.
package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/user/kvbench/internal/workload"
)

// Invocation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Invocation is one end-to-end execution of the benchmarked unit. Immutable
// once returned by an Invoker.
type Invocation struct {
	ID           string
	Status       string
	Error        string
	Total        time.Duration // outer wall clock around the whole invocation
	Action       time.Duration // inner execution time the unit reported
	SuccessCount int
}

// Invoker runs the unit once. Implementations never panic and never abort the
// surrounding loop; a failed invocation is an error-status record.
type Invoker interface {
	Invoke(ctx context.Context) Invocation
}

// FuncInvoker runs the workload in-process, measuring wall clock around the
// whole call.
type FuncInvoker struct {
	Run func(ctx context.Context) workload.UnitReport
}

func (f FuncInvoker) Invoke(ctx context.Context) Invocation {
	start := time.Now()
	report := f.Run(ctx)
	total := time.Since(start)
	return fromReport(report, total)
}

// ExecInvoker runs a separately deployed unit via an external command,
// feeding it the JSON parameter object on stdin and parsing its JSON stdout
// for the unit's own inner timing. A non-zero exit or unparseable output
// yields an error invocation; the remaining invocations keep going.
type ExecInvoker struct {
	Command string
	Args    []string
	Stdin   []byte
	Timeout time.Duration // per invocation (default 60s)
}

func (e ExecInvoker) Invoke(ctx context.Context) Invocation {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	if len(e.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(e.Stdin)
	}
	out, err := cmd.Output()
	total := time.Since(start)

	if err != nil {
		return Invocation{
			ID:     uuid.NewString(),
			Status: StatusError,
			Error:  "invoke " + e.Command + ": " + err.Error(),
			Total:  total,
		}
	}

	var report workload.UnitReport
	if jerr := json.Unmarshal(bytes.TrimSpace(out), &report); jerr != nil {
		return Invocation{
			ID:     uuid.NewString(),
			Status: StatusError,
			Error:  "unparseable unit output: " + jerr.Error(),
			Total:  total,
		}
	}
	return fromReport(report, total)
}

func fromReport(report workload.UnitReport, total time.Duration) Invocation {
	inv := Invocation{
		ID:           uuid.NewString(),
		Status:       StatusSuccess,
		Total:        total,
		Action:       time.Duration(report.ExecutionTimeMs * float64(time.Millisecond)),
		SuccessCount: report.SuccessCount,
	}
	if report.StatusCode != 200 || report.Error != "" {
		inv.Status = StatusError
		inv.Error = report.Error
	}
	return inv
}
