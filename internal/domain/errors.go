package domain

import "errors"

var (
	// ErrInvalidConfiguration is returned before any randomness is consumed
	// when a generation or simulation request cannot be honoured.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInfeasibleTarget means the simulation target cannot be reached with
	// the required numbers; no trials were run.
	ErrInfeasibleTarget = errors.New("infeasible target")
	// ErrExhausted means the simulation hit its trial bound without a match.
	ErrExhausted = errors.New("search exhausted")
	// ErrEmptyHistory means no draws are available yet.
	ErrEmptyHistory = errors.New("no draw history available")
	// ErrDrawNotFound means the provider has no result for the round (yet).
	ErrDrawNotFound = errors.New("draw not found")
)
