package generator

import (
	"lottobot/internal/domain"
)

// strategyFunc returns six distinct eligible numbers in any order. Every
// strategy starts from the forced (included) numbers.
type strategyFunc func(g *Generator, p *pool, cfg Config) ([]int, error)

var strategies = map[Strategy]strategyFunc{
	StrategyRandom:      uniformStrategy,
	StrategyStatistical: statisticalStrategy,
	StrategyOddEven:     oddEvenStrategy,
	StrategyHighLow:     highLowStrategy,
	StrategyPattern:     patternStrategy,
	StrategyConsecutive: consecutiveStrategy,
}

const (
	hotSeedCount  = 2
	coldSeedCount = 1
)

// Used when no history is available to derive hot and cold numbers.
var (
	fallbackHot  = []int{1, 12, 13, 17, 18, 27, 34, 43}
	fallbackCold = []int{9, 22, 23, 29, 32, 41}
)

// templates are arithmetic progressions laid over the 7-column ticket grid.
var templates = [][]int{
	{1, 8, 15, 22, 29, 36},
	{2, 9, 16, 23, 30, 37},
	{3, 10, 17, 24, 31, 38},
	{4, 11, 18, 25, 32, 39},
	{5, 12, 19, 26, 33, 40},
	{6, 13, 20, 27, 34, 41},
	{7, 14, 21, 28, 35, 42},
	{1, 9, 17, 25, 33, 41},
	{5, 13, 21, 29, 37, 45},
}

type selection struct {
	p      *pool
	chosen map[int]bool
	nums   []int
}

func newSelection(p *pool) *selection {
	s := &selection{p: p, chosen: make(map[int]bool, domain.PickCount)}
	for _, n := range p.forced {
		s.add(n)
	}
	return s
}

func (s *selection) add(n int) bool {
	if s.full() || s.chosen[n] || !s.p.eligible[n] {
		return false
	}
	s.chosen[n] = true
	s.nums = append(s.nums, n)
	return true
}

func (s *selection) full() bool { return len(s.nums) >= domain.PickCount }

func (s *selection) remaining() int { return domain.PickCount - len(s.nums) }

// candidates returns eligible, unchosen numbers accepted by keep (nil keeps all).
func (s *selection) candidates(keep func(int) bool) []int {
	var out []int
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if s.p.eligible[n] && !s.chosen[n] && (keep == nil || keep(n)) {
			out = append(out, n)
		}
	}
	return out
}

func (s *selection) fillUniform(g *Generator) {
	for _, n := range g.sample(s.candidates(nil), s.remaining()) {
		s.add(n)
	}
}

func (s *selection) result() ([]int, error) {
	if !s.full() {
		return nil, invalid("pool too constrained: only %d of %d numbers selectable", len(s.nums), domain.PickCount)
	}
	return append([]int(nil), s.nums...), nil
}

func uniformStrategy(g *Generator, p *pool, _ Config) ([]int, error) {
	s := newSelection(p)
	s.fillUniform(g)
	return s.result()
}

func statisticalStrategy(g *Generator, p *pool, cfg Config) ([]int, error) {
	hot, cold := cfg.Hot, cfg.Cold
	if len(hot) == 0 {
		hot = fallbackHot
	}
	if len(cold) == 0 {
		cold = fallbackCold
	}

	s := newSelection(p)
	seed := func(from []int, k int) {
		var usable []int
		for _, n := range from {
			if p.eligible[n] && !s.chosen[n] {
				usable = append(usable, n)
			}
		}
		if k > s.remaining() {
			k = s.remaining()
		}
		for _, n := range g.sample(usable, k) {
			s.add(n)
		}
	}
	seed(hot, hotSeedCount)
	seed(cold, coldSeedCount)
	s.fillUniform(g)
	return s.result()
}

func oddEvenStrategy(g *Generator, p *pool, cfg Config) ([]int, error) {
	r := cfg.oddEven()
	return ratioStrategy(g, p, isOdd, r.Odd, r.Even)
}

func highLowStrategy(g *Generator, p *pool, cfg Config) ([]int, error) {
	r := cfg.highLow()
	return ratioStrategy(g, p, isHigh, r.High, r.Low)
}

// ratioStrategy draws quotaA numbers matching isA and quotaB not matching it,
// net of forced numbers. A side that runs dry is topped up from the other.
func ratioStrategy(g *Generator, p *pool, isA func(int) bool, quotaA, quotaB int) ([]int, error) {
	s := newSelection(p)
	forcedA, forcedB := countSplit(p.forced, isA)

	sideA := g.sample(s.candidates(isA), quotaA-forcedA)
	sideB := g.sample(s.candidates(func(n int) bool { return !isA(n) }), quotaB-forcedB)
	for _, n := range sideA {
		s.add(n)
	}
	for _, n := range sideB {
		s.add(n)
	}
	s.fillUniform(g)
	return s.result()
}

func patternStrategy(g *Generator, p *pool, _ Config) ([]int, error) {
	s := newSelection(p)
	template := templates[g.rng.IntN(len(templates))]
	for _, n := range template {
		s.add(n)
	}
	s.fillUniform(g)
	return s.result()
}

func consecutiveStrategy(g *Generator, p *pool, cfg Config) ([]int, error) {
	length := cfg.runLength()
	s := newSelection(p)

	var starts []int
	for start := domain.MinNumber; start+length-1 <= domain.MaxNumber; start++ {
		if runFits(s, start, length) {
			starts = append(starts, start)
		}
	}
	if len(starts) > 0 {
		start := starts[g.rng.IntN(len(starts))]
		for n := start; n < start+length; n++ {
			s.add(n)
		}
	}

	// Fill without creating any further adjacent pair.
	for _, n := range g.sample(s.candidates(nil), len(s.candidates(nil))) {
		if s.full() {
			break
		}
		if s.chosen[n-1] || s.chosen[n+1] {
			continue
		}
		s.add(n)
	}
	s.fillUniform(g)
	return s.result()
}

// runFits reports whether start..start+length-1 can be placed: every member
// eligible, no neighbour already chosen, and room left for it alongside the
// forced numbers.
func runFits(s *selection, start, length int) bool {
	extra := 0
	for n := start; n < start+length; n++ {
		if !s.p.eligible[n] {
			return false
		}
		if !s.chosen[n] {
			extra++
		}
	}
	if s.chosen[start-1] || s.chosen[start+length] {
		return false
	}
	return extra <= s.remaining()
}
