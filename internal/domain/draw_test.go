package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawValidate(t *testing.T) {
	valid := Draw{Round: 1, Numbers: [6]int{10, 23, 29, 33, 37, 40}, Bonus: 16}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		draw Draw
	}{
		{"zero round", Draw{Round: 0, Numbers: valid.Numbers, Bonus: 16}},
		{"unsorted", Draw{Round: 2, Numbers: [6]int{23, 10, 29, 33, 37, 40}, Bonus: 16}},
		{"duplicate", Draw{Round: 2, Numbers: [6]int{10, 10, 29, 33, 37, 40}, Bonus: 16}},
		{"out of range", Draw{Round: 2, Numbers: [6]int{10, 23, 29, 33, 37, 46}, Bonus: 16}},
		{"bonus out of range", Draw{Round: 2, Numbers: valid.Numbers, Bonus: 0}},
		{"bonus duplicates winner", Draw{Round: 2, Numbers: valid.Numbers, Bonus: 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.draw.Validate())
		})
	}
}

func TestNewNumbersSorts(t *testing.T) {
	got, err := NewNumbers([]int{41, 3, 28, 7, 22, 15})
	require.NoError(t, err)
	assert.Equal(t, [6]int{3, 7, 15, 22, 28, 41}, got)

	_, err = NewNumbers([]int{1, 2, 3})
	assert.Error(t, err)
}

func TestDrawSum(t *testing.T) {
	d := Draw{Numbers: [6]int{1, 2, 3, 4, 5, 105}}
	assert.Equal(t, 120, d.Sum())
}

func TestRank(t *testing.T) {
	d := Draw{Round: 10, Numbers: [6]int{3, 7, 15, 22, 28, 41}, Bonus: 9}

	tests := []struct {
		picked []int
		want   int
	}{
		{[]int{3, 7, 15, 22, 28, 41}, 1},
		{[]int{3, 7, 15, 22, 28, 9}, 2},
		{[]int{3, 7, 15, 22, 28, 1}, 3},
		{[]int{3, 7, 15, 22, 1, 2}, 4},
		{[]int{3, 7, 15, 1, 2, 9}, 5},
		{[]int{3, 7, 1, 2, 4, 9}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rank(tt.picked, d), "picked=%v", tt.picked)
	}
	assert.Equal(t, 4, MatchCount([]int{3, 7, 15, 22, 1, 2}, d))
}
