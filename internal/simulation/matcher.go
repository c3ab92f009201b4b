// Package simulation searches for a randomly generated combination that
// reproduces a historical draw exactly, under a required-number constraint.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"lottobot/internal/domain"
)

const (
	DefaultMaxTrials  = 30000
	DefaultYieldEvery = 100
)

type Outcome string

const (
	OutcomeMatched    Outcome = "matched"
	OutcomeExhausted  Outcome = "exhausted"
	OutcomeCanceled   Outcome = "canceled"
	OutcomeInfeasible Outcome = "infeasible"
)

type Config struct {
	Target      domain.Draw
	Required    []int
	MinRequired int
	MaxTrials   int
	// YieldEvery is the number of trials between cooperative yield points.
	YieldEvery int
}

func (c Config) maxTrials() int {
	if c.MaxTrials == 0 {
		return DefaultMaxTrials
	}
	return c.MaxTrials
}

func (c Config) yieldEvery() int {
	if c.YieldEvery == 0 {
		return DefaultYieldEvery
	}
	return c.YieldEvery
}

// Progress is reported to the caller at every yield point.
type Progress struct {
	Trials    int
	MaxTrials int
	Last      []int
	Elapsed   time.Duration
}

type Run struct {
	ID          string
	Target      domain.Draw
	Required    []int
	MinRequired int
	MaxTrials   int
	Trials      int
	Outcome     Outcome
	Last        []int
	Elapsed     time.Duration

	cause error
}

// Matched reports whether the run found the target combination.
func (r Run) Matched() bool { return r.Outcome == OutcomeMatched }

// Err maps a non-matching terminal outcome to its error: ErrExhausted,
// ErrInfeasibleTarget, or the context error for a canceled run.
func (r Run) Err() error {
	switch r.Outcome {
	case OutcomeExhausted:
		return fmt.Errorf("%w after %d trials", domain.ErrExhausted, r.Trials)
	case OutcomeCanceled, OutcomeInfeasible:
		return r.cause
	default:
		return nil
	}
}

// Record converts the run into its persisted form.
func (r Run) Record(userID string, createdAt time.Time) domain.SimulationRecord {
	return domain.SimulationRecord{
		ID:          r.ID,
		UserID:      userID,
		TargetRound: r.Target.Round,
		Required:    append([]int(nil), r.Required...),
		MinRequired: r.MinRequired,
		MaxTrials:   r.MaxTrials,
		Trials:      r.Trials,
		Outcome:     string(r.Outcome),
		Last:        append([]int(nil), r.Last...),
		ElapsedMS:   r.Elapsed.Milliseconds(),
		CreatedAt:   createdAt,
	}
}

// Matcher is not safe for concurrent use; each goroutine needs its own.
type Matcher struct {
	rng *rand.Rand
	now func() time.Time
}

func New(src rand.Source) *Matcher {
	return &Matcher{rng: rand.New(src), now: time.Now}
}

func NewRandom() *Matcher {
	return New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// CheckFeasibility accepts the target when at least one holds:
//
//	(a) every required number is a winning number (at most six of them)
//	(b) every winning number is required
//	(c) required and winning numbers share at least minRequired numbers
func CheckFeasibility(target domain.Draw, required []int, minRequired int) error {
	overlap := 0
	for _, n := range required {
		if target.Contains(n) {
			overlap++
		}
	}
	allRequiredWin := overlap == len(required) && len(required) <= domain.PickCount

	set := make(map[int]bool, len(required))
	for _, n := range required {
		set[n] = true
	}
	allWinRequired := true
	for _, n := range target.Numbers {
		if !set[n] {
			allWinRequired = false
			break
		}
	}

	if allRequiredWin || allWinRequired || overlap >= minRequired {
		return nil
	}
	return fmt.Errorf("%w: round %d shares %d of %d required numbers, minimum is %d",
		domain.ErrInfeasibleTarget, target.Round, overlap, len(required), minRequired)
}

func validate(cfg Config) error {
	if err := domain.IsValidCombination(cfg.Target.Numbers[:]); err != nil {
		return fmt.Errorf("%w: target: %v", domain.ErrInvalidConfiguration, err)
	}
	seen := make(map[int]bool, len(cfg.Required))
	for _, n := range cfg.Required {
		if n < domain.MinNumber || n > domain.MaxNumber {
			return fmt.Errorf("%w: required number %d out of range", domain.ErrInvalidConfiguration, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: required number %d listed twice", domain.ErrInvalidConfiguration, n)
		}
		seen[n] = true
	}
	if cfg.MaxTrials < 0 {
		return fmt.Errorf("%w: max trials must not be negative, got %d", domain.ErrInvalidConfiguration, cfg.MaxTrials)
	}
	if cfg.YieldEvery < 0 {
		return fmt.Errorf("%w: yield interval must not be negative, got %d", domain.ErrInvalidConfiguration, cfg.YieldEvery)
	}
	return nil
}

// Run checks feasibility and then draws candidates until one equals the
// target or MaxTrials is reached. An unreachable target is reported as
// ErrInfeasibleTarget even when MinRequired is also out of bounds.
// Exhaustion is a normal outcome and returns a nil error; see Run.Err.
// progress may be nil.
func (m *Matcher) Run(ctx context.Context, cfg Config, progress func(Progress)) (Run, error) {
	run := Run{
		ID:          uuid.NewString(),
		Target:      cfg.Target,
		Required:    append([]int(nil), cfg.Required...),
		MinRequired: cfg.MinRequired,
		MaxTrials:   cfg.maxTrials(),
	}
	sort.Ints(run.Required)

	if err := validate(cfg); err != nil {
		return run, err
	}
	if err := CheckFeasibility(cfg.Target, run.Required, cfg.MinRequired); err != nil {
		run.Outcome = OutcomeInfeasible
		run.cause = err
		return run, err
	}
	if cfg.MinRequired < 0 || cfg.MinRequired > min(len(cfg.Required), domain.PickCount) {
		return run, fmt.Errorf("%w: minimum required %d must be between 0 and %d",
			domain.ErrInvalidConfiguration, cfg.MinRequired, min(len(cfg.Required), domain.PickCount))
	}

	start := m.now()
	if err := ctx.Err(); err != nil {
		run.Outcome = OutcomeCanceled
		run.cause = err
		return run, err
	}
	target := cfg.Target.Numbers
	yieldEvery := cfg.yieldEvery()
	var candidate [domain.PickCount]int

	for run.Trials < run.MaxTrials {
		candidate = m.candidate(run.Required, cfg.MinRequired)
		run.Trials++
		if candidate == target {
			run.Outcome = OutcomeMatched
			break
		}
		if run.Trials%yieldEvery == 0 {
			runtime.Gosched()
			if progress != nil {
				progress(Progress{
					Trials:    run.Trials,
					MaxTrials: run.MaxTrials,
					Last:      append([]int(nil), candidate[:]...),
					Elapsed:   m.now().Sub(start),
				})
			}
			if err := ctx.Err(); err != nil {
				run.Outcome = OutcomeCanceled
				run.cause = err
				break
			}
		}
	}
	if run.Outcome == "" {
		run.Outcome = OutcomeExhausted
	}
	if run.Trials > 0 {
		run.Last = append([]int(nil), candidate[:]...)
	}
	run.Elapsed = m.now().Sub(start)

	if run.Outcome == OutcomeCanceled {
		return run, run.cause
	}
	return run, nil
}

// candidate keeps a random subset of required (between min and six of them)
// and fills the rest uniformly from 1..45.
func (m *Matcher) candidate(required []int, minRequired int) [domain.PickCount]int {
	var chosen [domain.MaxNumber + 1]bool
	var out [domain.PickCount]int
	size := 0

	upper := min(len(required), domain.PickCount)
	if upper > 0 {
		k := minRequired + m.rng.IntN(upper-minRequired+1)
		perm := m.rng.Perm(len(required))
		for _, i := range perm[:k] {
			n := required[i]
			chosen[n] = true
			out[size] = n
			size++
		}
	}
	for size < domain.PickCount {
		n := domain.MinNumber + m.rng.IntN(domain.MaxNumber)
		if chosen[n] {
			continue
		}
		chosen[n] = true
		out[size] = n
		size++
	}
	sort.Ints(out[:])
	return out
}
