// Package workload executes one benchmark unit: N key-value operations of a
// single kind, partitioned across W workers, against either the store
// directly or the batching agent.
package workload

import "fmt"

// Kind selects the store operation a unit exercises.
type Kind string

const (
	KindGet    Kind = "get"
	KindSet    Kind = "set"
	KindDel    Kind = "del"
	KindExists Kind = "exists"
)

// Operation statuses in results.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation is one unit of work. Immutable after creation.
type Operation struct {
	Kind  Kind
	Key   string
	Value string // set only
}

// newOperation derives the i-th operation of a run. Keys and values follow
// the <prefix>_<i> / value_<i> convention the deployed dataset uses.
func newOperation(kind Kind, prefix string, i int) Operation {
	op := Operation{
		Kind: kind,
		Key:  fmt.Sprintf("%s_%d", prefix, i),
	}
	if kind == KindSet {
		op.Value = fmt.Sprintf("value_%d", i)
	}
	return op
}

// Result is the outcome of exactly one Operation.
type Result struct {
	Key        string  `json:"key"`
	Status     string  `json:"status"`
	Value      string  `json:"value,omitempty"`
	NotFound   bool    `json:"not_found,omitempty"` // get hit a missing key; distinct from Value == ""
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}
