// Package history keeps the local draw archive in step with the provider
// and serves recent windows to the statistics and generation paths.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"lottobot/internal/domain"
	"lottobot/internal/logger"
	"lottobot/internal/metrics"
)

// ErrSyncInProgress is returned when another Sync is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

type Store interface {
	UpsertDraws(draws []domain.Draw) (int, error)
	GetDraw(round int) (domain.Draw, error)
	LatestRound() (int, error)
	CountDraws() (int, error)
	ListRecentDraws(limit int) ([]domain.Draw, error)
}

type Provider interface {
	FetchDraw(ctx context.Context, round int) (domain.Draw, error)
}

type Options struct {
	// MaxRounds caps how many new rounds one Sync fetches.
	MaxRounds int
}

type Service struct {
	store    Store
	provider Provider
	cache    *Cache
	opts     Options

	syncMu sync.Mutex
}

func NewService(store Store, provider Provider, cache *Cache, opts Options) *Service {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 100
	}
	return &Service{store: store, provider: provider, cache: cache, opts: opts}
}

// Recent returns up to window draws, newest first.
func (s *Service) Recent(ctx context.Context, window int) ([]domain.Draw, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", domain.ErrInvalidConfiguration, window)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var epoch uint64
	if s.cache != nil {
		if draws, ok := s.cache.Get(window); ok {
			return draws, nil
		}
		epoch = s.cache.Epoch()
	}
	draws, err := s.store.ListRecentDraws(window)
	if err != nil {
		return nil, fmt.Errorf("list recent draws: %w", err)
	}
	if len(draws) == 0 {
		return nil, domain.ErrEmptyHistory
	}
	if s.cache != nil && !s.cache.AddIfCurrent(window, draws, epoch) {
		logger.Debug("draws changed during read, window not cached", zap.Int("window", window))
	}
	return draws, nil
}

// Latest returns the newest stored draw.
func (s *Service) Latest(ctx context.Context) (domain.Draw, error) {
	draws, err := s.Recent(ctx, 1)
	if err != nil {
		return domain.Draw{}, err
	}
	return draws[0], nil
}

// Draw looks round up locally and falls back to the provider, storing what
// it fetched.
func (s *Service) Draw(ctx context.Context, round int) (domain.Draw, error) {
	d, err := s.store.GetDraw(round)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, domain.ErrDrawNotFound) {
		return domain.Draw{}, err
	}
	d, err = s.provider.FetchDraw(ctx, round)
	if err != nil {
		return domain.Draw{}, err
	}
	if _, err := s.store.UpsertDraws([]domain.Draw{d}); err != nil {
		return domain.Draw{}, fmt.Errorf("store round %d: %w", round, err)
	}
	s.invalidate()
	return d, nil
}

type SyncResult struct {
	PreviousLatest int
	Latest         int
	Fetched        []domain.Draw // ascending by round
	// Truncated is set when MaxRounds stopped the sync before the provider
	// ran out of rounds.
	Truncated bool
}

func (r SyncResult) Stored() int { return len(r.Fetched) }

// Sync fetches every round after the newest stored one until the provider
// reports ErrDrawNotFound or MaxRounds is reached. Rounds fetched before a
// failure are still stored.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	if !s.syncMu.TryLock() {
		return SyncResult{}, ErrSyncInProgress
	}
	defer s.syncMu.Unlock()

	latest, err := s.store.LatestRound()
	if err != nil {
		return SyncResult{}, fmt.Errorf("latest round: %w", err)
	}
	res := SyncResult{PreviousLatest: latest, Latest: latest}

	var fetchErr error
	for round := latest + 1; ; round++ {
		if len(res.Fetched) >= s.opts.MaxRounds {
			res.Truncated = true
			break
		}
		d, err := s.provider.FetchDraw(ctx, round)
		if errors.Is(err, domain.ErrDrawNotFound) {
			break
		}
		if err != nil {
			fetchErr = err
			break
		}
		res.Fetched = append(res.Fetched, d)
	}

	if len(res.Fetched) > 0 {
		if _, err := s.store.UpsertDraws(res.Fetched); err != nil {
			return SyncResult{PreviousLatest: latest, Latest: latest}, fmt.Errorf("store draws: %w", err)
		}
		res.Latest = res.Fetched[len(res.Fetched)-1].Round
		metrics.DrawsSyncedTotal.Add(float64(len(res.Fetched)))
		s.invalidate()
	}

	logger.Info("draw sync finished",
		zap.Int("previous_latest", res.PreviousLatest),
		zap.Int("latest", res.Latest),
		zap.Int("stored", res.Stored()),
		zap.Bool("truncated", res.Truncated),
		zap.Error(fetchErr),
	)
	if fetchErr != nil {
		return res, fmt.Errorf("sync stopped after round %d: %w", res.Latest, fetchErr)
	}
	return res, nil
}

// Count reports how many draws the archive holds.
func (s *Service) Count() (int, error) {
	return s.store.CountDraws()
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}
