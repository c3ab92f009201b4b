package generator

import (
	"fmt"
	"sort"
	"strings"

	"lottobot/internal/domain"
)

type Strategy string

const (
	StrategyRandom      Strategy = "random"
	StrategyStatistical Strategy = "statistical"
	StrategyOddEven     Strategy = "odd_even"
	StrategyHighLow     Strategy = "high_low"
	StrategyPattern     Strategy = "pattern"
	StrategyConsecutive Strategy = "consecutive"
)

// Strategies lists every supported strategy in display order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyRandom,
		StrategyStatistical,
		StrategyOddEven,
		StrategyHighLow,
		StrategyPattern,
		StrategyConsecutive,
	}
}

// ParseStrategy accepts the canonical names plus a few short aliases.
// An empty string selects StrategyRandom.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random", "uniform":
		return StrategyRandom, nil
	case "statistical", "stats", "bias":
		return StrategyStatistical, nil
	case "odd_even", "oddeven", "odd-even":
		return StrategyOddEven, nil
	case "high_low", "highlow", "high-low":
		return StrategyHighLow, nil
	case "pattern", "template":
		return StrategyPattern, nil
	case "consecutive", "run":
		return StrategyConsecutive, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidConfiguration, s)
	}
}

type SumRange struct {
	Min int
	Max int
}

type OddEvenRatio struct {
	Odd  int
	Even int
}

type HighLowRatio struct {
	High int
	Low  int
}

const (
	DefaultMaxAttempts      = 1000
	DefaultConsecutiveLimit = 2

	minPossibleSum = 1 + 2 + 3 + 4 + 5 + 6
	maxPossibleSum = 40 + 41 + 42 + 43 + 44 + 45
)

// Config selects a strategy and the constraints applied to it.
//
// Hard constraints (range, distinctness, Include, Exclude, ratio quotas for
// the ratio strategies, the seeded run for StrategyConsecutive) are always
// honoured or rejected up front. Soft constraints (Sum, a ratio used with a
// strategy other than its own, ConsecutiveLimit as a run cap) are retried up
// to MaxAttempts candidates and reported in Result.Relaxed when none fit.
// Include wins over Exclude when both name the same number.
type Config struct {
	Strategy Strategy
	Include  []int
	Exclude  []int

	Sum     *SumRange
	OddEven *OddEvenRatio
	HighLow *HighLowRatio

	// ConsecutiveLimit is the seeded run length for StrategyConsecutive
	// (default 2) and the longest allowed run for the other strategies
	// (0 means unlimited).
	ConsecutiveLimit int

	// Hot and Cold seed StrategyStatistical; nil falls back to static lists.
	Hot  []int
	Cold []int

	MaxAttempts int
}

func (c Config) strategy() Strategy {
	if c.Strategy == "" {
		return StrategyRandom
	}
	return c.Strategy
}

func (c Config) maxAttempts() int {
	if c.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c Config) runLength() int {
	if c.ConsecutiveLimit == 0 {
		return DefaultConsecutiveLimit
	}
	return c.ConsecutiveLimit
}

func (c Config) oddEven() OddEvenRatio {
	if c.OddEven != nil {
		return *c.OddEven
	}
	return OddEvenRatio{Odd: 3, Even: 3}
}

func (c Config) highLow() HighLowRatio {
	if c.HighLow != nil {
		return *c.HighLow
	}
	return HighLowRatio{High: 3, Low: 3}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// pool is the set of numbers eligible for selection.
type pool struct {
	forced   []int // Include, sorted
	eligible [domain.MaxNumber + 1]bool
	size     int
}

// validate checks cfg and builds the pool. It consumes no randomness.
func validate(cfg Config) (*pool, error) {
	if _, ok := strategies[cfg.strategy()]; !ok {
		return nil, invalid("unknown strategy %q", cfg.Strategy)
	}
	if cfg.MaxAttempts < 0 {
		return nil, invalid("max attempts must not be negative, got %d", cfg.MaxAttempts)
	}
	if len(cfg.Include) > domain.PickCount {
		return nil, invalid("include set has %d numbers, at most %d allowed", len(cfg.Include), domain.PickCount)
	}

	p := &pool{}
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		p.eligible[n] = true
	}
	for _, n := range cfg.Exclude {
		if !inRange(n) {
			return nil, invalid("excluded number %d out of range", n)
		}
		p.eligible[n] = false
	}
	seen := make(map[int]bool, len(cfg.Include))
	for _, n := range cfg.Include {
		if !inRange(n) {
			return nil, invalid("included number %d out of range", n)
		}
		if seen[n] {
			return nil, invalid("included number %d listed twice", n)
		}
		seen[n] = true
		p.eligible[n] = true
		p.forced = append(p.forced, n)
	}
	sort.Ints(p.forced)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		if p.eligible[n] {
			p.size++
		}
	}
	if p.size < domain.PickCount {
		return nil, invalid("only %d numbers left after exclusions, need %d", p.size, domain.PickCount)
	}

	if cfg.OddEven != nil || cfg.strategy() == StrategyOddEven {
		r := cfg.oddEven()
		if err := checkRatio("odd/even", r.Odd, r.Even); err != nil {
			return nil, err
		}
		odd, even := countSplit(p.forced, isOdd)
		if odd > r.Odd || even > r.Even {
			return nil, invalid("included numbers (%d odd, %d even) exceed odd/even ratio %d:%d", odd, even, r.Odd, r.Even)
		}
	}
	if cfg.HighLow != nil || cfg.strategy() == StrategyHighLow {
		r := cfg.highLow()
		if err := checkRatio("high/low", r.High, r.Low); err != nil {
			return nil, err
		}
		high, low := countSplit(p.forced, isHigh)
		if high > r.High || low > r.Low {
			return nil, invalid("included numbers (%d high, %d low) exceed high/low ratio %d:%d", high, low, r.High, r.Low)
		}
	}
	if cfg.Sum != nil {
		if cfg.Sum.Min > cfg.Sum.Max {
			return nil, invalid("sum range %d-%d is inverted", cfg.Sum.Min, cfg.Sum.Max)
		}
		if cfg.Sum.Max < minPossibleSum || cfg.Sum.Min > maxPossibleSum {
			return nil, invalid("sum range %d-%d outside achievable %d-%d", cfg.Sum.Min, cfg.Sum.Max, minPossibleSum, maxPossibleSum)
		}
	}
	if cfg.ConsecutiveLimit != 0 && (cfg.ConsecutiveLimit < 2 || cfg.ConsecutiveLimit > domain.PickCount) {
		return nil, invalid("consecutive limit must be between 2 and %d, got %d", domain.PickCount, cfg.ConsecutiveLimit)
	}
	for _, n := range append(append([]int(nil), cfg.Hot...), cfg.Cold...) {
		if !inRange(n) {
			return nil, invalid("hot/cold number %d out of range", n)
		}
	}
	return p, nil
}

func checkRatio(name string, a, b int) error {
	if a < 0 || b < 0 {
		return invalid("%s ratio %d:%d has a negative part", name, a, b)
	}
	if a+b != domain.PickCount {
		return invalid("%s ratio %d:%d must add up to %d", name, a, b, domain.PickCount)
	}
	return nil
}

func inRange(n int) bool {
	return n >= domain.MinNumber && n <= domain.MaxNumber
}

func isOdd(n int) bool { return n%2 == 1 }

func isHigh(n int) bool { return n > domain.HighLowThreshold }

func countSplit(nums []int, pred func(int) bool) (int, int) {
	yes, no := 0, 0
	for _, n := range nums {
		if pred(n) {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}
