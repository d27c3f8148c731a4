// Package agent is the batching agent: an HTTP proxy that sits next to the
// key-value store and coalesces many small client requests into pipelined
// store round trips.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Operation names on the agent's internal queue.
const (
	opGet    = "get"
	opSet    = "set"
	opDel    = "del"
	opExists = "exists"
)

// request is one queued client operation. The batcher delivers exactly one
// outcome on out.
type request struct {
	op    string
	key   string
	value string // set only
	out   chan outcome
}

type outcome struct {
	val string
	err error
}

func newRequest(op, key, value string) *request {
	return &request{op: op, key: key, value: value, out: make(chan outcome, 1)}
}

// Flusher executes a batch against the store and delivers an outcome to every
// request in it.
type Flusher func(ctx context.Context, batch []*request)

// BatcherConfig tunes the coalescing window.
type BatcherConfig struct {
	Enabled  bool
	Window   time.Duration // how long to wait for more requests (default 100ms)
	MaxBatch int           // flush immediately at this size (default 10)
}

func (c BatcherConfig) withDefaults() BatcherConfig {
	if c.Window <= 0 {
		c.Window = 100 * time.Millisecond
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 10
	}
	return c
}

// Batcher queues requests and flushes them in bounded batches. With batching
// disabled every request is flushed synchronously on its own.
type Batcher struct {
	cfg     BatcherConfig
	flush   Flusher
	pending chan *request
	wg      sync.WaitGroup
}

func NewBatcher(cfg BatcherConfig, flush Flusher) *Batcher {
	cfg = cfg.withDefaults()
	b := &Batcher{
		cfg:   cfg,
		flush: flush,
		// Buffered well past one batch so bursts do not block handlers.
		pending: make(chan *request, cfg.MaxBatch*10),
	}
	if cfg.Enabled {
		b.wg.Add(1)
		go b.loop()
	}
	return b
}

// Submit hands a request to the batcher. The caller waits on req.out.
func (b *Batcher) Submit(ctx context.Context, req *request) {
	if !b.cfg.Enabled {
		b.flush(ctx, []*request{req})
		return
	}
	b.pending <- req
}

// Shutdown stops accepting requests and waits for queued batches to flush.
func (b *Batcher) Shutdown() {
	if b.cfg.Enabled {
		close(b.pending)
		b.wg.Wait()
	}
}

func (b *Batcher) loop() {
	defer b.wg.Done()

	for {
		first, ok := <-b.pending
		if !ok {
			return
		}
		batch := make([]*request, 1, b.cfg.MaxBatch)
		batch[0] = first

		timer := time.NewTimer(b.cfg.Window)
	collect:
		for len(batch) < b.cfg.MaxBatch {
			select {
			case req, ok := <-b.pending:
				if !ok {
					break collect
				}
				batch = append(batch, req)
			case <-timer.C:
				break collect
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		slog.Debug("flushing batch", "size", len(batch))
		b.flush(context.Background(), batch)
	}
}

// setPair identifies a set by both key and value; two sets of the same key
// with different values must not be collapsed.
type setPair struct {
	key, value string
}

// grouped is a batch bucketed by operation, with identical operations
// de-duplicated so the store sees each one once.
type grouped struct {
	gets   map[string][]*request
	sets   map[setPair][]*request
	dels   map[string][]*request
	exists map[string][]*request
	bad    []*request
}

func groupBatch(batch []*request) grouped {
	g := grouped{
		gets:   make(map[string][]*request),
		sets:   make(map[setPair][]*request),
		dels:   make(map[string][]*request),
		exists: make(map[string][]*request),
	}
	for _, req := range batch {
		switch req.op {
		case opGet:
			g.gets[req.key] = append(g.gets[req.key], req)
		case opSet:
			p := setPair{key: req.key, value: req.value}
			g.sets[p] = append(g.sets[p], req)
		case opDel:
			g.dels[req.key] = append(g.dels[req.key], req)
		case opExists:
			g.exists[req.key] = append(g.exists[req.key], req)
		default:
			g.bad = append(g.bad, req)
		}
	}
	return g
}
