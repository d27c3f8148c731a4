package workload

import (
	"strings"
	"testing"
)

func TestParseParamsDefaults(t *testing.T) {
	base := DefaultParams()
	base.RedisHost = "envhost"
	base.RedisPort = "6379"

	p, err := ParseParams([]byte(`{}`), base)
	if err != nil {
		t.Fatal(err)
	}
	if p.NumOps != 1 || p.OperationType != KindGet || p.UseBatching || p.ParallelCalls != 1 {
		t.Errorf("defaults not preserved: %+v", p)
	}
	if p.KeyPrefix != "test_key" {
		t.Errorf("key prefix = %q, want test_key", p.KeyPrefix)
	}
	if p.RedisHost != "envhost" {
		t.Errorf("base connection target lost: %+v", p)
	}
}

func TestParseParamsOverrides(t *testing.T) {
	raw := `{
		"num_ops": 50,
		"operation_type": "set",
		"use_batching": true,
		"parallel_calls": 4,
		"key_prefix": "bench",
		"REDIS_HOST": "10.0.0.5",
		"REDIS_PORT": 6400,
		"batching_agent_host": "10.0.0.6",
		"batching_agent_port": "9090"
	}`
	p, err := ParseParams([]byte(raw), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if p.NumOps != 50 || p.OperationType != KindSet || !p.UseBatching || p.ParallelCalls != 4 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.RedisHost != "10.0.0.5" || p.RedisPort != "6400" {
		t.Errorf("redis target = %s:%s", p.RedisHost, p.RedisPort)
	}
	if p.AgentHost != "10.0.0.6" || p.AgentPort != "9090" {
		t.Errorf("agent target = %s:%s", p.AgentHost, p.AgentPort)
	}
}

func TestParseParamsStringSpellings(t *testing.T) {
	raw := `{"num_ops": "25", "use_batching": "true", "parallel_calls": "3"}`
	p, err := ParseParams([]byte(raw), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if p.NumOps != 25 || !p.UseBatching || p.ParallelCalls != 3 {
		t.Errorf("string spellings not coerced: %+v", p)
	}
}

func TestParseParamsRejectsWrongTypes(t *testing.T) {
	if _, err := ParseParams([]byte(`{"num_ops": [1, 2]}`), DefaultParams()); err == nil {
		t.Error("array num_ops should fail validation")
	}
	if _, err := ParseParams([]byte(`not json`), DefaultParams()); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestParseParamsClampsToMinimums(t *testing.T) {
	p, err := ParseParams([]byte(`{"num_ops": 0, "parallel_calls": -2}`), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if p.NumOps != 1 || p.ParallelCalls != 1 {
		t.Errorf("minimums not enforced: %+v", p)
	}
}

func TestParamsEncodeRoundTrip(t *testing.T) {
	p := DefaultParams()
	p.NumOps = 7
	p.OperationType = KindExists
	p.UseBatching = true
	p.RedisHost = "h"
	p.RedisPort = "6379"

	raw, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"operation_type":"exists"`) {
		t.Errorf("encoded params missing operation type: %s", raw)
	}

	got, err := ParseParams(raw, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if got.NumOps != 7 || got.OperationType != KindExists || !got.UseBatching || got.RedisHost != "h" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}
