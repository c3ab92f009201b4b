package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	MinNumber = 1
	MaxNumber = 45
	PickCount = 6

	// Numbers at or below the threshold are "low", above it "high".
	HighLowThreshold = 22
)

// Draw is one historical drawing as published by the provider.
type Draw struct {
	Round        int
	Date         time.Time
	Numbers      [PickCount]int // sorted ascending
	Bonus        int
	FirstPrize   int64 // per-winner first-tier amount
	FirstWinners int
	TotalSales   int64
}

func (d Draw) Validate() error {
	if d.Round <= 0 {
		return fmt.Errorf("round must be positive, got %d", d.Round)
	}
	if err := IsValidCombination(d.Numbers[:]); err != nil {
		return fmt.Errorf("round %d: %w", d.Round, err)
	}
	if d.Bonus < MinNumber || d.Bonus > MaxNumber {
		return fmt.Errorf("round %d: bonus %d out of range", d.Round, d.Bonus)
	}
	for _, n := range d.Numbers {
		if n == d.Bonus {
			return fmt.Errorf("round %d: bonus %d duplicates a winning number", d.Round, d.Bonus)
		}
	}
	return nil
}

// Sum of the six winning numbers (bonus excluded).
func (d Draw) Sum() int {
	total := 0
	for _, n := range d.Numbers {
		total += n
	}
	return total
}

// Contains reports whether n is one of the six winning numbers.
func (d Draw) Contains(n int) bool {
	for _, v := range d.Numbers {
		if v == n {
			return true
		}
	}
	return false
}

// NewNumbers sorts the given six values into a fixed array.
func NewNumbers(vals []int) ([PickCount]int, error) {
	var out [PickCount]int
	if len(vals) != PickCount {
		return out, fmt.Errorf("expected %d numbers, got %d", PickCount, len(vals))
	}
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)
	copy(out[:], sorted)
	return out, nil
}

// IsValidCombination checks the combination invariant: exactly six pairwise
// distinct numbers in [1,45], sorted ascending.
func IsValidCombination(nums []int) error {
	if len(nums) != PickCount {
		return fmt.Errorf("expected %d numbers, got %d", PickCount, len(nums))
	}
	for i, n := range nums {
		if n < MinNumber || n > MaxNumber {
			return fmt.Errorf("number %d out of range [%d,%d]", n, MinNumber, MaxNumber)
		}
		if i > 0 && nums[i-1] >= n {
			return fmt.Errorf("numbers not strictly ascending at position %d", i)
		}
	}
	return nil
}

// SavedPick is a user-saved combination.
type SavedPick struct {
	ID        int64
	UserID    string
	Numbers   [PickCount]int
	Strategy  string
	Note      string
	CreatedAt time.Time
}

// SimulationRecord is the persisted summary of a simulation run.
type SimulationRecord struct {
	ID          string
	UserID      string
	TargetRound int
	Required    []int
	MinRequired int
	MaxTrials   int
	Trials      int
	Outcome     string
	Last        []int
	ElapsedMS   int64
	CreatedAt   time.Time
}
