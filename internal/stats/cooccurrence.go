package stats

import (
	"sort"

	"lottobot/internal/domain"
)

type CoOccurrencePair struct {
	Numbers [2]int
	Count   int
}

type CoOccurrenceTriple struct {
	Numbers [3]int
	Count   int
}

// Pairs counts how often each unordered pair of winning numbers drawn from
// subset appeared together. An empty subset means every number. Results are
// sorted by count desc, then by tuple ascending.
func Pairs(draws []domain.Draw, subset []int) []CoOccurrencePair {
	allowed := subsetFilter(subset)
	counts := make(map[[2]int]int)
	for _, d := range draws {
		nums := filtered(d, allowed)
		for i := 0; i < len(nums); i++ {
			for j := i + 1; j < len(nums); j++ {
				counts[[2]int{nums[i], nums[j]}]++
			}
		}
	}

	out := make([]CoOccurrencePair, 0, len(counts))
	for k, c := range counts {
		out = append(out, CoOccurrencePair{Numbers: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return lessTuple(out[i].Numbers[:], out[j].Numbers[:])
	})
	return out
}

// Triples is Pairs for three numbers.
func Triples(draws []domain.Draw, subset []int) []CoOccurrenceTriple {
	allowed := subsetFilter(subset)
	counts := make(map[[3]int]int)
	for _, d := range draws {
		nums := filtered(d, allowed)
		for i := 0; i < len(nums); i++ {
			for j := i + 1; j < len(nums); j++ {
				for k := j + 1; k < len(nums); k++ {
					counts[[3]int{nums[i], nums[j], nums[k]}]++
				}
			}
		}
	}

	out := make([]CoOccurrenceTriple, 0, len(counts))
	for k, c := range counts {
		out = append(out, CoOccurrenceTriple{Numbers: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return lessTuple(out[i].Numbers[:], out[j].Numbers[:])
	})
	return out
}

func subsetFilter(subset []int) map[int]bool {
	if len(subset) == 0 {
		return nil
	}
	allowed := make(map[int]bool, len(subset))
	for _, n := range subset {
		allowed[n] = true
	}
	return allowed
}

// filtered returns d's winning numbers that pass allowed, sorted ascending
// so every tuple key is already in canonical order.
func filtered(d domain.Draw, allowed map[int]bool) []int {
	nums := make([]int, 0, domain.PickCount)
	for _, n := range d.Numbers {
		if allowed == nil || allowed[n] {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

func lessTuple(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
