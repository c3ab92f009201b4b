// Package stats computes per-number aggregates over a window of historical
// draws. Everything here is pure: inputs are never mutated and every call
// returns a freshly allocated snapshot.
package stats

import (
	"sort"

	"lottobot/internal/domain"
)

const (
	DefaultRecentWindow = 10

	hotThreshold = 3
)

type Options struct {
	// RecentWindow is the number of most recent rounds used for hot/cold
	// classification. Zero selects DefaultRecentWindow; values larger than
	// the history are clamped.
	RecentWindow int
	// IncludeBonus counts the bonus number toward Count (basis 7 instead of 6).
	// Bonus appearances are always tracked in BonusCount.
	IncludeBonus bool
}

type NumberStatistic struct {
	Number      int
	Count       int
	BonusCount  int
	LastRound   int
	Rounds      []int // ascending
	AverageGap  float64
	CurrentGap  int
	RecentCount int
	IsHot       bool
	IsCold      bool
}

type SumRangeBucket struct {
	Label string
	Count int
}

type Statistics struct {
	DrawCount    int
	CountBasis   int
	RecentWindow int
	LatestRound  int
	Numbers      []NumberStatistic // count desc, then number asc
	SumRanges    []SumRangeBucket
	OddTotal     int
	EvenTotal    int

	byNumber [domain.MaxNumber + 1]int // index into Numbers
}

var sumBucketLabels = []string{"≤120", "121–140", "141–160", "161–180", "181–200", ">200"}

// SumBucket returns the histogram label for a six-number sum.
func SumBucket(sum int) string {
	return sumBucketLabels[sumBucketIndex(sum)]
}

func sumBucketIndex(sum int) int {
	switch {
	case sum <= 120:
		return 0
	case sum <= 140:
		return 1
	case sum <= 160:
		return 2
	case sum <= 180:
		return 3
	case sum <= 200:
		return 4
	default:
		return 5
	}
}

// Compute aggregates draws (any order) into a Statistics snapshot covering
// all 45 numbers. An empty input yields all-zero statistics.
func Compute(draws []domain.Draw, opts Options) Statistics {
	window := opts.RecentWindow
	if window <= 0 {
		window = DefaultRecentWindow
	}
	if window > len(draws) {
		window = len(draws)
	}

	basis := domain.PickCount
	if opts.IncludeBonus {
		basis++
	}

	result := Statistics{
		DrawCount:    len(draws),
		CountBasis:   basis,
		RecentWindow: window,
		SumRanges:    make([]SumRangeBucket, len(sumBucketLabels)),
	}
	for i, label := range sumBucketLabels {
		result.SumRanges[i].Label = label
	}

	per := make([]NumberStatistic, domain.MaxNumber+1)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		per[n].Number = n
	}

	for _, d := range draws {
		if d.Round > result.LatestRound {
			result.LatestRound = d.Round
		}
		for _, n := range d.Numbers {
			if n < domain.MinNumber || n > domain.MaxNumber {
				continue
			}
			per[n].record(d.Round)
			if n%2 == 1 {
				result.OddTotal++
			} else {
				result.EvenTotal++
			}
		}
		if d.Bonus >= domain.MinNumber && d.Bonus <= domain.MaxNumber {
			per[d.Bonus].BonusCount++
			if opts.IncludeBonus {
				per[d.Bonus].record(d.Round)
			}
		}
		result.SumRanges[sumBucketIndex(d.Sum())].Count++
	}

	recent := recentRounds(draws, window)

	result.Numbers = make([]NumberStatistic, 0, domain.MaxNumber)
	for n := domain.MinNumber; n <= domain.MaxNumber; n++ {
		s := per[n]
		sort.Ints(s.Rounds)
		s.AverageGap = averageGap(s.Rounds)
		if s.LastRound > 0 {
			s.CurrentGap = result.LatestRound - s.LastRound
		}
		for _, r := range s.Rounds {
			if recent[r] {
				s.RecentCount++
			}
		}
		s.IsHot = s.RecentCount >= hotThreshold
		s.IsCold = s.RecentCount == 0
		result.Numbers = append(result.Numbers, s)
	}

	sort.SliceStable(result.Numbers, func(i, j int) bool {
		a, b := result.Numbers[i], result.Numbers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Number < b.Number
	})
	for i, s := range result.Numbers {
		result.byNumber[s.Number] = i
	}
	return result
}

func (s *NumberStatistic) record(round int) {
	s.Count++
	s.Rounds = append(s.Rounds, round)
	if round > s.LastRound {
		s.LastRound = round
	}
}

// recentRounds returns the set of the n highest distinct round numbers.
func recentRounds(draws []domain.Draw, n int) map[int]bool {
	rounds := make([]int, 0, len(draws))
	seen := make(map[int]bool, len(draws))
	for _, d := range draws {
		if !seen[d.Round] {
			seen[d.Round] = true
			rounds = append(rounds, d.Round)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rounds)))
	if n > len(rounds) {
		n = len(rounds)
	}
	out := make(map[int]bool, n)
	for _, r := range rounds[:n] {
		out[r] = true
	}
	return out
}

func averageGap(rounds []int) float64 {
	if len(rounds) < 2 {
		return 0
	}
	return float64(rounds[len(rounds)-1]-rounds[0]) / float64(len(rounds)-1)
}

// Number returns the statistic for n; the zero value when n is out of range.
func (s Statistics) Number(n int) NumberStatistic {
	if n < domain.MinNumber || n > domain.MaxNumber || len(s.Numbers) == 0 {
		return NumberStatistic{Number: n}
	}
	return s.Numbers[s.byNumber[n]]
}

// Total is the sum of all per-number counts; DrawCount*CountBasis for
// well-formed input.
func (s Statistics) Total() int {
	total := 0
	for _, n := range s.Numbers {
		total += n.Count
	}
	return total
}

// Hot returns up to limit hot numbers, most recent occurrences first.
func (s Statistics) Hot(limit int) []int {
	return s.pick(limit, func(n NumberStatistic) bool { return n.IsHot }, func(a, b NumberStatistic) bool {
		if a.RecentCount != b.RecentCount {
			return a.RecentCount > b.RecentCount
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Number < b.Number
	})
}

// Cold returns up to limit cold numbers, longest absence first.
func (s Statistics) Cold(limit int) []int {
	return s.pick(limit, func(n NumberStatistic) bool { return n.IsCold }, func(a, b NumberStatistic) bool {
		if (a.LastRound == 0) != (b.LastRound == 0) {
			return a.LastRound == 0
		}
		if a.CurrentGap != b.CurrentGap {
			return a.CurrentGap > b.CurrentGap
		}
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Number < b.Number
	})
}

func (s Statistics) pick(limit int, keep func(NumberStatistic) bool, less func(a, b NumberStatistic) bool) []int {
	if s.DrawCount == 0 {
		return nil
	}
	var candidates []NumberStatistic
	for _, n := range s.Numbers {
		if keep(n) {
			candidates = append(candidates, n)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return less(candidates[i], candidates[j]) })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.Number
	}
	return out
}
