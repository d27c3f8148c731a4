package stats

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestComputeEmpty(t *testing.T) {
	if _, ok := Compute(nil); ok {
		t.Fatal("expected no summary for empty sample")
	}
	if _, ok := Compute([]time.Duration{}); ok {
		t.Fatal("expected no summary for zero-length sample")
	}
}

func TestComputeNearestRank(t *testing.T) {
	// 1ms..10ms, shuffled on input to prove Compute sorts.
	sample := []time.Duration{
		7 * time.Millisecond, 2 * time.Millisecond, 10 * time.Millisecond,
		4 * time.Millisecond, 1 * time.Millisecond, 9 * time.Millisecond,
		3 * time.Millisecond, 6 * time.Millisecond, 8 * time.Millisecond,
		5 * time.Millisecond,
	}
	s, ok := Compute(sample)
	if !ok {
		t.Fatal("expected a summary")
	}
	if s.Count != 10 {
		t.Errorf("count = %d, want 10", s.Count)
	}
	if s.Min != 1*time.Millisecond || s.Max != 10*time.Millisecond {
		t.Errorf("min/max = %s/%s, want 1ms/10ms", s.Min, s.Max)
	}
	// floor(10*0.5) = index 5 of the sorted sample, so the upper median.
	if s.Median != 6*time.Millisecond {
		t.Errorf("median = %s, want 6ms", s.Median)
	}
	// floor(10*0.9) = index 9.
	if s.P90 != 10*time.Millisecond {
		t.Errorf("p90 = %s, want 10ms", s.P90)
	}
	if s.Mean != 5500*time.Microsecond {
		t.Errorf("mean = %s, want 5.5ms", s.Mean)
	}
}

func TestComputeP99Gate(t *testing.T) {
	small := make([]time.Duration, 99)
	for i := range small {
		small[i] = time.Duration(i+1) * time.Millisecond
	}
	s, ok := Compute(small)
	if !ok {
		t.Fatal("expected a summary")
	}
	if s.HasP99 {
		t.Error("p99 should be absent below 100 samples")
	}

	full := append(small, 100*time.Millisecond)
	s, ok = Compute(full)
	if !ok {
		t.Fatal("expected a summary")
	}
	if !s.HasP99 {
		t.Fatal("p99 should be present at 100 samples")
	}
	// floor(100*0.99) = index 99.
	if s.P99 != 100*time.Millisecond {
		t.Errorf("p99 = %s, want 100ms", s.P99)
	}
}

func TestSummaryJSON(t *testing.T) {
	s, _ := Compute([]time.Duration{time.Millisecond, 2 * time.Millisecond})
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "p99_ms") {
		t.Errorf("p99_ms should be omitted without enough samples: %s", data)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["median_ms"] != 2.0 {
		t.Errorf("median_ms = %v, want 2", m["median_ms"])
	}
}
