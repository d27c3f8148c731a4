package workload

import (
	"context"
	"sync"
	"time"
)

// ExecutorFactory builds the executor a worker uses for its span. A factory
// may hand every worker a dedicated connection (direct mode) or share one
// stateless client (batched mode). The returned close func may be nil.
type ExecutorFactory func(worker int) (Executor, func(), error)

// RunResult is the raw outcome of one workload run. Exactly one Result per
// submitted operation, ordered by worker span (which is also index order).
type RunResult struct {
	Results      []Result
	SuccessCount int
	Elapsed      time.Duration
}

// Run partitions numOps operations of the given kind across workers and
// executes them concurrently. Each worker walks its index range in order and
// collects into its own slice; the slices are concatenated after all workers
// finish, so no locking guards the results. Individual failures never stop
// the run: a worker that cannot even build its executor still emits one error
// Result per operation in its span.
func Run(ctx context.Context, kind Kind, keyPrefix string, numOps, workers int, factory ExecutorFactory) RunResult {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	spans := partition(numOps, workers)
	perWorker := make([][]Result, len(spans))

	var wg sync.WaitGroup
	for wi, sp := range spans {
		wg.Add(1)
		go func(wi int, sp span) {
			defer wg.Done()
			perWorker[wi] = runSpan(ctx, kind, keyPrefix, wi, sp, factory)
		}(wi, sp)
	}
	wg.Wait()

	out := RunResult{
		Results: make([]Result, 0, numOps),
	}
	for _, rs := range perWorker {
		out.Results = append(out.Results, rs...)
	}
	for _, r := range out.Results {
		if r.Status == StatusSuccess {
			out.SuccessCount++
		}
	}
	out.Elapsed = time.Since(start)
	return out
}

func runSpan(ctx context.Context, kind Kind, keyPrefix string, worker int, sp span, factory ExecutorFactory) []Result {
	results := make([]Result, 0, sp.size())

	exec, closer, err := factory(worker)
	if err != nil {
		// The invariant still holds: every operation in the span yields a
		// Result, here all failed with the factory error.
		for i := sp.start; i < sp.end; i++ {
			op := newOperation(kind, keyPrefix, i)
			results = append(results, Result{
				Key:    op.Key,
				Status: StatusError,
				Error:  err.Error(),
			})
		}
		return results
	}
	if closer != nil {
		defer closer()
	}

	for i := sp.start; i < sp.end; i++ {
		op := newOperation(kind, keyPrefix, i)
		results = append(results, dispatch(ctx, exec, op))
	}
	return results
}
