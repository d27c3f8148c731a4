package workload

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPartitionConcrete(t *testing.T) {
	tests := []struct {
		n, w int
		want []span
	}{
		{10, 3, []span{{0, 4}, {4, 7}, {7, 10}}},
		{10, 1, []span{{0, 10}}},
		{3, 5, []span{{0, 1}, {1, 2}, {2, 3}}},
		{6, 3, []span{{0, 2}, {2, 4}, {4, 6}}},
		{0, 4, nil},
		{5, 0, nil},
	}
	for _, tt := range tests {
		got := partition(tt.n, tt.w)
		if len(got) != len(tt.want) {
			t.Errorf("partition(%d, %d) = %v, want %v", tt.n, tt.w, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("partition(%d, %d)[%d] = %v, want %v", tt.n, tt.w, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPartitionProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("spans cover [0,n) exactly with sizes differing by at most one",
		prop.ForAll(func(n, w int) bool {
			spans := partition(n, w)

			if len(spans) > w {
				return false
			}

			// Contiguous cover in order.
			next := 0
			minSize, maxSize := n+1, 0
			for _, sp := range spans {
				if sp.start != next || sp.end <= sp.start {
					return false
				}
				next = sp.end
				if sz := sp.size(); sz < minSize {
					minSize = sz
				}
				if sz := sp.size(); sz > maxSize {
					maxSize = sz
				}
			}
			if next != n {
				return false
			}
			return len(spans) == 0 || maxSize-minSize <= 1
		}, gen.IntRange(1, 1000), gen.IntRange(1, 64)))

	properties.TestingRun(t)
}
