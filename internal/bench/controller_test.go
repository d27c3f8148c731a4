package bench

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingInvoker struct {
	calls atomic.Int32
	fail  func(call int32) bool
}

func (c *countingInvoker) Invoke(context.Context) Invocation {
	call := c.calls.Add(1)
	if c.fail != nil && c.fail(call) {
		return Invocation{ID: "x", Status: StatusError, Error: "boom"}
	}
	return Invocation{
		ID:     "x",
		Status: StatusSuccess,
		Total:  time.Millisecond,
		Action: time.Millisecond / 2,
	}
}

func TestControllerRunsEveryInvocation(t *testing.T) {
	inv := &countingInvoker{}
	c := NewController(Config{Invocations: 25, Rate: 10}, inv)

	var slept atomic.Int32
	c.sleep = func(time.Duration) { slept.Add(1) }

	results := c.Run(context.Background())
	if len(results) != 25 {
		t.Fatalf("got %d results, want 25", len(results))
	}
	if got := inv.calls.Load(); got != 25 {
		t.Errorf("invoker called %d times, want 25", got)
	}
	for i, r := range results {
		if r.Status != StatusSuccess {
			t.Errorf("result %d = %s", i, r.Status)
		}
	}
	// One pause after each full rate-sized wave except the first submission.
	if got := slept.Load(); got != 2 {
		t.Errorf("slept %d times, want 2", got)
	}
}

func TestControllerCollectsFailures(t *testing.T) {
	inv := &countingInvoker{fail: func(call int32) bool { return call%2 == 0 }}
	c := NewController(Config{Invocations: 10, Rate: 100}, inv)
	c.sleep = func(time.Duration) {}

	results := c.Run(context.Background())
	var failed int
	for _, r := range results {
		if r.Status == StatusError {
			failed++
		}
	}
	if failed != 5 {
		t.Errorf("failed = %d, want 5", failed)
	}
}

func TestControllerZeroInvocations(t *testing.T) {
	c := NewController(Config{Invocations: 0}, &countingInvoker{})
	if results := c.Run(context.Background()); len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
