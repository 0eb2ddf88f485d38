package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets through num out of every den calls to Allow.
// A zero ratio disables sampling.
type sampler struct {
	ratio atomic.Uint64 // num<<32 | den
	n     atomic.Uint64
}

func (s *sampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
		return
	}
	if num > den {
		num = den
	}
	s.ratio.Store(uint64(num)<<32 | uint64(uint32(den)))
	s.n.Store(0)
}

func (s *sampler) Allow() bool {
	ratio := s.ratio.Load()
	if ratio == 0 {
		return true
	}
	num, den := ratio>>32, ratio&0xffffffff
	return (s.n.Add(1)-1)%den < num
}

// parseRatio accepts "num/den" or a bare "den" meaning 1/den.
// It returns ok=false for malformed input and 0,0 when sampling is switched off.
func parseRatio(raw string) (num, den int, ok bool) {
	raw = strings.TrimSpace(raw)
	if a, b, found := strings.Cut(raw, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return n, d, true
	}
	d, err := strconv.Atoi(raw)
	if err != nil {
		return 0, 0, false
	}
	if d <= 0 {
		return 0, 0, true
	}
	return 1, d, true
}
