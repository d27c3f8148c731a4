// Package stats computes nearest-rank latency summaries over benchmark
// samples. Percentile-at-p is the sorted sample's element at index
// floor(len*p), without interpolation; this exact tie-break is kept stable so
// runs stay comparable across versions.
package stats

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// minP99Sample is the smallest sample for which p99 is meaningful. Below it
// the p99 field is reported absent, never zero or extrapolated.
const minP99Sample = 100

// Summary is a distributional snapshot of a latency sample. It is recomputed
// fresh on every Compute call and never mutated afterwards.
type Summary struct {
	Count  int
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	Median time.Duration
	P90    time.Duration
	P99    time.Duration // valid only when HasP99
	HasP99 bool
}

// Compute summarizes sample. ok is false when the sample is empty, in which
// case the caller reports "no data" instead of statistics.
func Compute(sample []time.Duration) (s Summary, ok bool) {
	n := len(sample)
	if n == 0 {
		return Summary{}, false
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	s = Summary{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   sum / time.Duration(n),
		Median: nearestRank(sorted, 0.50),
		P90:    nearestRank(sorted, 0.90),
	}
	if n >= minP99Sample {
		s.P99 = nearestRank(sorted, 0.99)
		s.HasP99 = true
	}
	return s, true
}

// nearestRank indexes sorted at floor(len*p), clamped to the last element.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MarshalJSON reports durations as millisecond floats, matching the unit's
// own execution_time_ms convention. p99_ms is omitted entirely when absent.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := struct {
		Count    int      `json:"count"`
		MinMs    float64  `json:"min_ms"`
		MaxMs    float64  `json:"max_ms"`
		MeanMs   float64  `json:"mean_ms"`
		MedianMs float64  `json:"median_ms"`
		P90Ms    float64  `json:"p90_ms"`
		P99Ms    *float64 `json:"p99_ms,omitempty"`
	}{
		Count:    s.Count,
		MinMs:    ms(s.Min),
		MaxMs:    ms(s.Max),
		MeanMs:   ms(s.Mean),
		MedianMs: ms(s.Median),
		P90Ms:    ms(s.P90),
	}
	if s.HasP99 {
		p := ms(s.P99)
		out.P99Ms = &p
	}
	return json.Marshal(out)
}

func (s Summary) String() string {
	p99 := "n/a"
	if s.HasP99 {
		p99 = s.P99.Round(time.Microsecond).String()
	}
	return fmt.Sprintf("count=%d min=%s max=%s mean=%s p50=%s p90=%s p99=%s",
		s.Count,
		s.Min.Round(time.Microsecond),
		s.Max.Round(time.Microsecond),
		s.Mean.Round(time.Microsecond),
		s.Median.Round(time.Microsecond),
		s.P90.Round(time.Microsecond),
		p99)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
