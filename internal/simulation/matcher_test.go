package simulation

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottobot/internal/domain"
)

func target(round int, nums ...int) domain.Draw {
	d := domain.Draw{Round: round, Bonus: 45}
	copy(d.Numbers[:], nums)
	return d
}

func newTestMatcher(seed uint64) *Matcher {
	return New(rand.NewPCG(seed, seed+1))
}

func TestCheckFeasibility(t *testing.T) {
	tgt := target(1100, 3, 7, 15, 22, 28, 41)

	tests := []struct {
		name     string
		required []int
		min      int
		ok       bool
	}{
		{"required subset of winners", []int{3, 7, 15}, 3, true},
		{"winners subset of required", []int{1, 3, 7, 15, 22, 28, 41, 44}, 7, true},
		{"overlap meets minimum", []int{3, 7, 9, 10}, 2, true},
		{"overlap below minimum", []int{3, 9, 10, 11}, 2, false},
		{"no overlap min six", []int{1, 2, 4, 5, 6, 8}, 6, false},
		{"no required numbers", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFeasibility(tgt, tt.required, tt.min)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInfeasibleTarget)
			}
		})
	}
}

func TestRunInfeasibleConsumesNoTrials(t *testing.T) {
	run, err := newTestMatcher(1).Run(context.Background(), Config{
		Target:      target(1100, 3, 7, 15, 22, 28, 41),
		Required:    []int{1, 2, 4, 5, 6, 8},
		MinRequired: 6,
	}, nil)

	require.ErrorIs(t, err, domain.ErrInfeasibleTarget)
	assert.Equal(t, 0, run.Trials)
	assert.Equal(t, OutcomeInfeasible, run.Outcome)
	assert.Empty(t, run.Last)
	assert.ErrorIs(t, run.Err(), domain.ErrInfeasibleTarget)
}

func TestRunInfeasibleBeforeMinimumBound(t *testing.T) {
	_, err := newTestMatcher(1).Run(context.Background(), Config{
		Target:      target(1100, 3, 7, 15, 22, 28, 41),
		Required:    []int{1, 2},
		MinRequired: 6,
	}, nil)
	assert.ErrorIs(t, err, domain.ErrInfeasibleTarget)
}

func TestRunReferenceTarget(t *testing.T) {
	cfg := Config{
		Target:      target(1100, 3, 7, 15, 22, 28, 41),
		Required:    []int{3, 7, 15},
		MinRequired: 3,
	}
	run, err := newTestMatcher(7).Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxTrials, run.MaxTrials)
	switch run.Outcome {
	case OutcomeMatched:
		assert.LessOrEqual(t, run.Trials, DefaultMaxTrials)
		assert.Equal(t, []int{3, 7, 15, 22, 28, 41}, run.Last)
		assert.NoError(t, run.Err())
	case OutcomeExhausted:
		assert.Equal(t, DefaultMaxTrials, run.Trials)
		assert.ErrorIs(t, run.Err(), domain.ErrExhausted)
	default:
		t.Fatalf("unexpected outcome %q", run.Outcome)
	}
	require.NoError(t, domain.IsValidCombination(run.Last))
	for _, n := range []int{3, 7, 15} {
		assert.Contains(t, run.Last, n)
	}
	assert.NotEmpty(t, run.ID)
}

func TestRunMatchesImmediatelyWhenEverythingRequired(t *testing.T) {
	run, err := newTestMatcher(3).Run(context.Background(), Config{
		Target:      target(900, 1, 2, 3, 4, 5, 6),
		Required:    []int{6, 5, 4, 3, 2, 1},
		MinRequired: 6,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, run.Outcome)
	assert.True(t, run.Matched())
	assert.Equal(t, 1, run.Trials)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, run.Last)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, run.Required)
}

func TestRunExhaustsAndReportsProgress(t *testing.T) {
	var reports []Progress
	run, err := newTestMatcher(5).Run(context.Background(), Config{
		Target:     target(1000, 3, 7, 15, 22, 28, 41),
		Required:   []int{1},
		MaxTrials:  50,
		YieldEvery: 10,
	}, func(p Progress) { reports = append(reports, p) })

	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, run.Outcome)
	assert.Equal(t, 50, run.Trials)
	require.NoError(t, domain.IsValidCombination(run.Last))
	assert.ErrorIs(t, run.Err(), domain.ErrExhausted)

	require.Len(t, reports, 5)
	for i, p := range reports {
		assert.Equal(t, (i+1)*10, p.Trials)
		assert.Equal(t, 50, p.MaxTrials)
		assert.Len(t, p.Last, domain.PickCount)
	}
}

func TestRunCanceledAtYieldPoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := newTestMatcher(9).Run(ctx, Config{
		Target:     target(1000, 3, 7, 15, 22, 28, 41),
		Required:   []int{1},
		MaxTrials:  1000,
		YieldEvery: 10,
	}, func(Progress) { cancel() })

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCanceled, run.Outcome)
	assert.Equal(t, 10, run.Trials)
	assert.Len(t, run.Last, domain.PickCount)
	assert.ErrorIs(t, run.Err(), context.Canceled)
}

func TestRunAlreadyCanceledDoesNoWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	run, err := newTestMatcher(9).Run(ctx, Config{
		Target:     target(1000, 3, 7, 15, 22, 28, 41),
		Required:   []int{1},
		MaxTrials:  1000,
		YieldEvery: 10,
	}, func(Progress) { calls++ })

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCanceled, run.Outcome)
	assert.Zero(t, run.Trials)
	assert.Empty(t, run.Last)
	assert.Zero(t, calls)
}

func TestRunInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad target", Config{Target: target(1, 1, 1, 2, 3, 4, 5)}},
		{"required out of range", Config{Target: target(1, 1, 2, 3, 4, 5, 6), Required: []int{46}}},
		{"required duplicate", Config{Target: target(1, 1, 2, 3, 4, 5, 6), Required: []int{2, 2}}},
		{"negative trials", Config{Target: target(1, 1, 2, 3, 4, 5, 6), MaxTrials: -1}},
		{"min above required", Config{Target: target(1, 1, 2, 3, 4, 5, 6), Required: []int{1, 2}, MinRequired: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := newTestMatcher(1).Run(context.Background(), tt.cfg, nil)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			assert.Equal(t, 0, run.Trials)
		})
	}
}

func TestCandidateKeepsMinimumRequired(t *testing.T) {
	m := newTestMatcher(11)
	required := []int{2, 9, 17, 30, 31, 38, 44}
	for i := 0; i < 2000; i++ {
		c := m.candidate(required, 3)
		require.NoError(t, domain.IsValidCombination(c[:]))
		kept := 0
		for _, n := range c {
			for _, r := range required {
				if n == r {
					kept++
				}
			}
		}
		assert.GreaterOrEqual(t, kept, 3)
	}
}

func TestRecord(t *testing.T) {
	run := Run{
		ID:          "abc",
		Target:      target(1100, 3, 7, 15, 22, 28, 41),
		Required:    []int{3, 7},
		MinRequired: 2,
		MaxTrials:   100,
		Trials:      100,
		Outcome:     OutcomeExhausted,
		Last:        []int{1, 2, 3, 4, 5, 7},
	}
	rec := run.Record("U1", run.Target.Date)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, "U1", rec.UserID)
	assert.Equal(t, 1100, rec.TargetRound)
	assert.Equal(t, "exhausted", rec.Outcome)
	assert.Equal(t, []int{3, 7}, rec.Required)
}
