package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// errKeyMissing marks a get against an absent key; the HTTP layer turns it
// into a 404.
var errKeyMissing = errors.New("key not found")

// Store executes grouped batches against redis through a single pipelined
// round trip. Unlike the benchmark's wire-protocol client this side uses the
// full client library: the agent is store-side infrastructure, not the thing
// being measured.
type Store struct {
	rdb *redis.Client
}

func NewStore(addr, password string, poolSize int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			PoolSize: poolSize,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// Flush implements Flusher. Every request in batch receives exactly one
// outcome, including unsupported operations and pipeline failures.
func (s *Store) Flush(ctx context.Context, batch []*request) {
	ctx, span := otel.Tracer("kvbench/agent").Start(ctx, "batch.flush")
	defer span.End()

	g := groupBatch(batch)
	span.SetAttributes(
		attribute.Int("batch.size", len(batch)),
		attribute.Int("batch.distinct", len(g.gets)+len(g.sets)+len(g.dels)+len(g.exists)),
	)

	for _, req := range g.bad {
		req.out <- outcome{err: fmt.Errorf("unsupported request type: %s", req.op)}
	}

	pipe := s.rdb.Pipeline()

	getCmds := make(map[string]*redis.StringCmd, len(g.gets))
	for key := range g.gets {
		getCmds[key] = pipe.Get(ctx, key)
	}
	setCmds := make(map[setPair]*redis.StatusCmd, len(g.sets))
	for p := range g.sets {
		setCmds[p] = pipe.Set(ctx, p.key, p.value, 0)
	}
	delCmds := make(map[string]*redis.IntCmd, len(g.dels))
	for key := range g.dels {
		delCmds[key] = pipe.Del(ctx, key)
	}
	existsCmds := make(map[string]*redis.IntCmd, len(g.exists))
	for key := range g.exists {
		existsCmds[key] = pipe.Exists(ctx, key)
	}

	// Per-command errors are inspected individually below; Exec's own error
	// repeats the first command failure.
	_, _ = pipe.Exec(ctx)

	for key, reqs := range g.gets {
		val, err := getCmds[key].Result()
		if errors.Is(err, redis.Nil) {
			err = errKeyMissing
		}
		deliver(reqs, val, err)
	}
	for p, reqs := range g.sets {
		val, err := setCmds[p].Result()
		deliver(reqs, val, err)
	}
	for key, reqs := range g.dels {
		n, err := delCmds[key].Result()
		deliver(reqs, strconv.FormatInt(n, 10), err)
	}
	for key, reqs := range g.exists {
		n, err := existsCmds[key].Result()
		deliver(reqs, strconv.FormatInt(n, 10), err)
	}
}

func deliver(reqs []*request, val string, err error) {
	for _, req := range reqs {
		if err != nil {
			req.out <- outcome{err: err}
		} else {
			req.out <- outcome{val: val}
		}
	}
}
