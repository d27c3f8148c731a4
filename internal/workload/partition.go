package workload

// span is a worker's half-open index range [start, end).
type span struct {
	start, end int
}

func (s span) size() int { return s.end - s.start }

// partition splits [0, n) into at most w contiguous spans in worker order.
// The first n%w spans carry one extra operation, so sizes differ by at most
// one and the union covers [0, n) exactly, with no index skipped or
// duplicated. Workers whose span would be empty are dropped: with n < w only
// n spans come back.
func partition(n, w int) []span {
	if n <= 0 || w <= 0 {
		return nil
	}
	base := n / w
	rem := n % w

	spans := make([]span, 0, w)
	start := 0
	for i := 0; i < w; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		spans = append(spans, span{start: start, end: start + size})
		start += size
	}
	return spans
}
