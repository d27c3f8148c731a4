package workload

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xeipuuv/gojsonschema"
)

// paramsSchema validates the unit's JSON input. Numeric and boolean options
// also accept string spellings because invocation layers (CLI -p flags,
// environment plumbing) routinely stringify everything.
const paramsSchema = `{
	"type": "object",
	"properties": {
		"num_ops":             {"type": ["integer", "string"]},
		"operation_type":      {"type": "string"},
		"use_batching":        {"type": ["boolean", "string"]},
		"parallel_calls":      {"type": ["integer", "string"]},
		"key_prefix":          {"type": "string"},
		"REDIS_HOST":          {"type": "string"},
		"REDIS_PORT":          {"type": ["string", "integer"]},
		"REDIS_PASSWORD":      {"type": "string"},
		"batching_agent_host": {"type": "string"},
		"batching_agent_port": {"type": ["string", "integer"]}
	}
}`

// Params is the fully resolved input of one unit run.
type Params struct {
	NumOps        int
	OperationType Kind
	UseBatching   bool
	ParallelCalls int
	KeyPrefix     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	AgentHost     string
	AgentPort     string
}

// DefaultParams returns the documented option defaults. Connection targets
// default empty; the caller fills them from resolved configuration.
func DefaultParams() Params {
	return Params{
		NumOps:        1,
		OperationType: KindGet,
		UseBatching:   false,
		ParallelCalls: 1,
		KeyPrefix:     "test_key",
	}
}

// ParseParams decodes and validates a raw JSON parameter object on top of
// base. Unknown fields are ignored; schema violations are returned as one
// error so the unit can report a 500 with the reason.
func ParseParams(raw []byte, base Params) (Params, error) {
	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(paramsSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return base, fmt.Errorf("workload: parse params: %w", err)
	}
	if !res.Valid() {
		return base, fmt.Errorf("workload: invalid params: %v", res.Errors())
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return base, fmt.Errorf("workload: parse params: %w", err)
	}

	p := base
	if v, ok := intParam(m, "num_ops"); ok {
		p.NumOps = v
	}
	if v, ok := m["operation_type"].(string); ok && v != "" {
		p.OperationType = Kind(v)
	}
	if v, ok := boolParam(m, "use_batching"); ok {
		p.UseBatching = v
	}
	if v, ok := intParam(m, "parallel_calls"); ok {
		p.ParallelCalls = v
	}
	if v, ok := m["key_prefix"].(string); ok && v != "" {
		p.KeyPrefix = v
	}
	if v, ok := m["REDIS_HOST"].(string); ok && v != "" {
		p.RedisHost = v
	}
	if v, ok := stringParam(m, "REDIS_PORT"); ok {
		p.RedisPort = v
	}
	if v, ok := m["REDIS_PASSWORD"].(string); ok && v != "" {
		p.RedisPassword = v
	}
	if v, ok := m["batching_agent_host"].(string); ok && v != "" {
		p.AgentHost = v
	}
	if v, ok := stringParam(m, "batching_agent_port"); ok {
		p.AgentPort = v
	}

	if p.NumOps < 1 {
		p.NumOps = 1
	}
	if p.ParallelCalls < 1 {
		p.ParallelCalls = 1
	}
	return p, nil
}

// Encode renders p as the JSON parameter object a unit accepts on stdin.
func (p Params) Encode() ([]byte, error) {
	return json.Marshal(map[string]any{
		"num_ops":             p.NumOps,
		"operation_type":      string(p.OperationType),
		"use_batching":        p.UseBatching,
		"parallel_calls":      p.ParallelCalls,
		"key_prefix":          p.KeyPrefix,
		"REDIS_HOST":          p.RedisHost,
		"REDIS_PORT":          p.RedisPort,
		"REDIS_PASSWORD":      p.RedisPassword,
		"batching_agent_host": p.AgentHost,
		"batching_agent_port": p.AgentPort,
	})
}

func intParam(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

func boolParam(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	return false, false
}

func stringParam(m map[string]any, key string) (string, bool) {
	switch v := m[key].(type) {
	case string:
		if v != "" {
			return v, true
		}
	case float64:
		return strconv.Itoa(int(v)), true
	}
	return "", false
}
