package domain

// Rank returns the prize tier a picked combination wins against d:
// 1 six matches, 2 five plus bonus, 3 five, 4 four, 5 three, 0 otherwise.
func Rank(picked []int, d Draw) int {
	matches := 0
	bonus := false
	for _, n := range picked {
		if d.Contains(n) {
			matches++
		} else if n == d.Bonus {
			bonus = true
		}
	}
	switch {
	case matches == 6:
		return 1
	case matches == 5 && bonus:
		return 2
	case matches == 5:
		return 3
	case matches == 4:
		return 4
	case matches == 3:
		return 5
	default:
		return 0
	}
}

// MatchCount counts how many picked numbers are among d's winning numbers.
func MatchCount(picked []int, d Draw) int {
	count := 0
	for _, n := range picked {
		if d.Contains(n) {
			count++
		}
	}
	return count
}
