package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/user/kvbench/internal/stats"
)

// maxReportedErrors caps the raw error messages carried in a report.
const maxReportedErrors = 10

// Report is the aggregate over one benchmark run. Total covers end-to-end
// invocation time; Action covers the unit's own reported execution time. Both
// are nil when no invocation succeeded.
type Report struct {
	Submitted int            `json:"submitted"`
	Succeeded int            `json:"succeeded"`
	Total     *stats.Summary `json:"total,omitempty"`
	Action    *stats.Summary `json:"action,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
}

// Aggregate builds the report from raw invocations. Only successful
// invocations contribute timings; an all-failed run produces an explicit
// no-data report rather than zeros.
func Aggregate(invocations []Invocation) Report {
	report := Report{Submitted: len(invocations)}

	var totals, actions []time.Duration
	for _, inv := range invocations {
		if inv.Status != StatusSuccess {
			if len(report.Errors) < maxReportedErrors {
				report.Errors = append(report.Errors, inv.Error)
			}
			continue
		}
		report.Succeeded++
		totals = append(totals, inv.Total)
		actions = append(actions, inv.Action)
	}

	if s, ok := stats.Compute(totals); ok {
		report.Total = &s
	}
	if s, ok := stats.Compute(actions); ok {
		report.Action = &s
	}
	return report
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invocations: %d submitted, %d succeeded\n", r.Submitted, r.Succeeded)
	if r.Total == nil {
		b.WriteString("no successful invocations; nothing to aggregate\n")
		return b.String()
	}
	fmt.Fprintf(&b, "total  (end-to-end): %s\n", r.Total)
	if r.Action != nil {
		fmt.Fprintf(&b, "action (unit-internal): %s\n", r.Action)
	}
	return b.String()
}

// WriteFile persists the report as indented JSON.
func (r Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
