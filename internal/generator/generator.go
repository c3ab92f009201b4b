// Package generator produces 6-of-45 combinations under a strategy and a set
// of constraints. It performs no I/O; all randomness comes from the
// Generator's source.
package generator

import (
	"math/rand/v2"
	"sort"

	"lottobot/internal/domain"
)

// Generator is not safe for concurrent use. Create one per goroutine.
type Generator struct {
	rng *rand.Rand
}

func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewRandom returns a Generator seeded from the runtime's random source.
func NewRandom() *Generator {
	return New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

type Stats struct {
	Sum              int
	Odd              int
	Even             int
	High             int
	Low              int
	ConsecutivePairs int
	LongestRun       int
}

type Result struct {
	Numbers  []int
	Strategy Strategy
	Stats    Stats
	// Relaxed names soft constraints no candidate could satisfy within
	// MaxAttempts; empty when every constraint held.
	Relaxed []string
}

// Describe derives the combination statistics for sorted nums.
func Describe(nums []int) Stats {
	var s Stats
	run := 0
	for i, n := range nums {
		s.Sum += n
		if isOdd(n) {
			s.Odd++
		} else {
			s.Even++
		}
		if isHigh(n) {
			s.High++
		} else {
			s.Low++
		}
		if i > 0 && n-nums[i-1] == 1 {
			s.ConsecutivePairs++
			run++
		} else {
			run = 1
		}
		if run > s.LongestRun {
			s.LongestRun = run
		}
	}
	return s
}

// Generate returns one valid combination or an ErrInvalidConfiguration
// error. Configuration problems are reported before any randomness is used.
func (g *Generator) Generate(cfg Config) (Result, error) {
	p, err := validate(cfg)
	if err != nil {
		return Result{}, err
	}
	strategy := cfg.strategy()
	fn := strategies[strategy]

	var last []int
	var relaxed []string
	for attempt := 0; attempt < cfg.maxAttempts(); attempt++ {
		nums, err := fn(g, p, cfg)
		if err != nil {
			return Result{}, err
		}
		sort.Ints(nums)
		if err := domain.IsValidCombination(nums); err != nil {
			return Result{}, invalid("strategy %s produced %v: %v", strategy, nums, err)
		}
		last = nums
		relaxed = violations(nums, cfg)
		if len(relaxed) == 0 {
			break
		}
	}

	return Result{
		Numbers:  last,
		Strategy: strategy,
		Stats:    Describe(last),
		Relaxed:  relaxed,
	}, nil
}

// GenerateN returns count independent combinations.
func (g *Generator) GenerateN(cfg Config, count int) ([]Result, error) {
	if count < 1 {
		return nil, invalid("count must be at least 1, got %d", count)
	}
	out := make([]Result, 0, count)
	for i := 0; i < count; i++ {
		res, err := g.Generate(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// violations lists the constraints nums fails to meet.
func violations(nums []int, cfg Config) []string {
	var out []string
	s := Describe(nums)
	strategy := cfg.strategy()

	if cfg.Sum != nil && (s.Sum < cfg.Sum.Min || s.Sum > cfg.Sum.Max) {
		out = append(out, "sum")
	}
	if cfg.OddEven != nil || strategy == StrategyOddEven {
		r := cfg.oddEven()
		if s.Odd != r.Odd || s.Even != r.Even {
			out = append(out, "odd_even")
		}
	}
	if cfg.HighLow != nil || strategy == StrategyHighLow {
		r := cfg.highLow()
		if s.High != r.High || s.Low != r.Low {
			out = append(out, "high_low")
		}
	}
	if strategy == StrategyConsecutive {
		l := cfg.runLength()
		if s.LongestRun != l || s.ConsecutivePairs != l-1 {
			out = append(out, "consecutive")
		}
	} else if cfg.ConsecutiveLimit > 0 && s.LongestRun > cfg.ConsecutiveLimit {
		out = append(out, "consecutive")
	}
	return out
}

// sample draws k distinct values from candidates without replacement. It
// returns fewer than k when candidates run out.
func (g *Generator) sample(candidates []int, k int) []int {
	c := append([]int(nil), candidates...)
	if k > len(c) {
		k = len(c)
	}
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(len(c)-i)
		c[i], c[j] = c[j], c[i]
	}
	return c[:k]
}
