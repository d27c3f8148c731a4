package bench

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config tunes the invocation loop.
type Config struct {
	Invocations int // total invocations to submit
	Rate        int // invocations submitted per second (default 10)
}

func (c Config) withDefaults() Config {
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Invocations < 0 {
		c.Invocations = 0
	}
	return c
}

// Controller submits invocations at the configured rate against a bounded
// worker pool and collects every Invocation record in submission order.
type Controller struct {
	cfg     Config
	invoker Invoker
	tracer  trace.Tracer

	// sleep is swapped out by tests; production pauses one second after
	// every Rate submissions.
	sleep func(time.Duration)
}

func NewController(cfg Config, invoker Invoker) *Controller {
	return &Controller{
		cfg:     cfg.withDefaults(),
		invoker: invoker,
		tracer:  otel.Tracer("kvbench/bench"),
		sleep:   time.Sleep,
	}
}

// Run drives the full loop and blocks until every submitted invocation has
// finished. Failed invocations are recorded, never fatal. The pool is sized
// at twice the rate so slow invocations cannot queue unbounded work.
func (c *Controller) Run(ctx context.Context) []Invocation {
	n := c.cfg.Invocations
	results := make([]Invocation, n)

	sem := make(chan struct{}, 2*c.cfg.Rate)
	var wg sync.WaitGroup

	slog.Info("starting benchmark",
		"invocations", n, "rate", c.cfg.Rate)

	for i := 0; i < n; i++ {
		if i > 0 && i%c.cfg.Rate == 0 {
			c.sleep(time.Second)
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			invCtx, span := c.tracer.Start(ctx, "unit.invoke")
			inv := c.invoker.Invoke(invCtx)
			span.SetAttributes(
				attribute.String("invocation.status", inv.Status),
				attribute.Int64("invocation.total_us", inv.Total.Microseconds()),
			)
			span.End()

			results[i] = inv
		}(i)

		if (i+1)%10 == 0 || i+1 == n {
			slog.Info("submitted invocations", "count", i+1, "total", n)
		}
	}

	wg.Wait()
	return results
}
