package workload

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/user/kvbench/internal/proxy"
	"github.com/user/kvbench/internal/resp"
)

// Executor runs one operation and returns its raw value. Implementations
// report failures as errors; classification into Result records happens in
// dispatch so both modes produce uniform outcomes.
type Executor interface {
	Execute(ctx context.Context, op Operation) (string, error)
}

// DirectExecutor issues operations straight to the store over the minimal
// wire protocol. The underlying client is single-connection and not
// pipeline-safe, so every worker gets its own DirectExecutor.
type DirectExecutor struct {
	Client *resp.Client
}

func (e DirectExecutor) Execute(_ context.Context, op Operation) (string, error) {
	switch op.Kind {
	case KindGet:
		return e.Client.Get(op.Key)
	case KindSet:
		if err := e.Client.Set(op.Key, op.Value); err != nil {
			return "", err
		}
		return "OK", nil
	case KindDel:
		n, err := e.Client.Del(op.Key)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case KindExists:
		ok, err := e.Client.Exists(op.Key)
		if err != nil {
			return "", err
		}
		if ok {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unsupported operation type: %s", op.Kind)
	}
}

// ProxyExecutor relays operations through the batching agent. Agent calls are
// stateless HTTP requests, so one ProxyExecutor may be shared by all workers.
type ProxyExecutor struct {
	Client *proxy.Client
}

func (e ProxyExecutor) Execute(ctx context.Context, op Operation) (string, error) {
	switch op.Kind {
	case KindGet:
		return e.Client.Get(ctx, op.Key)
	case KindSet:
		return e.Client.Set(ctx, op.Key, op.Value)
	case KindDel:
		return e.Client.Del(ctx, op.Key)
	case KindExists:
		return e.Client.Exists(ctx, op.Key)
	default:
		return "", fmt.Errorf("unsupported operation type: %s", op.Kind)
	}
}

// dispatch executes op and normalizes the outcome. Failures of any class end
// up inside the Result; nothing propagates out of a worker.
func dispatch(ctx context.Context, exec Executor, op Operation) Result {
	start := time.Now()
	val, err := exec.Execute(ctx, op)
	r := Result{
		Key:        op.Key,
		DurationMs: float64(time.Since(start)) / float64(time.Millisecond),
	}
	switch {
	case errors.Is(err, resp.ErrNotFound):
		r.Status = StatusSuccess
		r.NotFound = true
	case err != nil:
		r.Status = StatusError
		r.Error = err.Error()
	default:
		r.Status = StatusSuccess
		r.Value = val
	}
	return r
}
