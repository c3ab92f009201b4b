package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottobot/internal/domain"
	"lottobot/internal/storage/sqlite"
)

type fakeProvider struct {
	mu      sync.Mutex
	draws   map[int]domain.Draw
	failAt  int
	calls   []int
	started chan struct{}
	blockCh chan struct{}
}

func (p *fakeProvider) FetchDraw(ctx context.Context, round int) (domain.Draw, error) {
	if p.blockCh != nil {
		p.started <- struct{}{}
		<-p.blockCh
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, round)
	if round == p.failAt {
		return domain.Draw{}, errors.New("provider down")
	}
	d, ok := p.draws[round]
	if !ok {
		return domain.Draw{}, fmt.Errorf("%w: round %d", domain.ErrDrawNotFound, round)
	}
	return d, nil
}

func makeDraw(round int) domain.Draw {
	base := (round % 7) + 1
	d := domain.Draw{Round: round, Bonus: 45}
	for i := range d.Numbers {
		d.Numbers[i] = base + i*6
	}
	return d
}

func providerWith(rounds ...int) *fakeProvider {
	p := &fakeProvider{draws: map[int]domain.Draw{}}
	for _, r := range rounds {
		p.draws[r] = makeDraw(r)
	}
	return p
}

func newTestService(t *testing.T, p Provider, maxRounds int) (*Service, *sqlite.Store, *Cache) {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache, err := NewCache(8)
	require.NoError(t, err)
	store := sqlite.NewStore(db)
	return NewService(store, p, cache, Options{MaxRounds: maxRounds}), store, cache
}

func TestRecentEmptyHistory(t *testing.T) {
	svc, _, _ := newTestService(t, providerWith(), 10)
	_, err := svc.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrEmptyHistory)

	_, err = svc.Recent(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestSyncFetchesUntilNotFound(t *testing.T) {
	p := providerWith(1, 2, 3, 4)
	svc, store, _ := newTestService(t, p, 10)

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.PreviousLatest)
	assert.Equal(t, 4, res.Latest)
	assert.Equal(t, 4, res.Stored())
	assert.False(t, res.Truncated)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, p.calls)

	count, err := store.CountDraws()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// nothing new
	p.calls = nil
	res, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Stored())
	assert.Equal(t, []int{5}, p.calls)
}

func TestSyncRespectsMaxRounds(t *testing.T) {
	p := providerWith(1, 2, 3, 4, 5)
	svc, _, _ := newTestService(t, p, 2)

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 2, res.Latest)

	res, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.PreviousLatest)
	assert.Equal(t, 4, res.Latest)
}

func TestSyncStoresPartialProgressOnFailure(t *testing.T) {
	p := providerWith(1, 2, 3, 4)
	p.failAt = 3
	svc, store, _ := newTestService(t, p, 10)

	res, err := svc.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, res.Latest)

	latest, err := store.LatestRound()
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}

func TestSyncInvalidatesCache(t *testing.T) {
	p := providerWith(1, 2)
	svc, _, cache := newTestService(t, p, 10)
	ctx := context.Background()

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	draws, err := svc.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, 1, cache.Len())

	p.draws[3] = makeDraw(3)
	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, cache.Len())

	draws, err = svc.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, draws, 3)
	assert.Equal(t, 3, draws[0].Round)

	latest, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Round)
}

func TestRecentServesCopiesFromCache(t *testing.T) {
	svc, _, _ := newTestService(t, providerWith(1, 2), 10)
	ctx := context.Background()
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	first, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	first[0].Round = 999

	second, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, second[0].Round)
}

func TestDrawFallsBackToProvider(t *testing.T) {
	p := providerWith(7)
	svc, store, _ := newTestService(t, p, 10)

	d, err := svc.Draw(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, d.Round)

	stored, err := store.GetDraw(7)
	require.NoError(t, err)
	assert.Equal(t, d.Numbers, stored.Numbers)

	p.calls = nil
	_, err = svc.Draw(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, p.calls, "second lookup is served locally")

	_, err = svc.Draw(context.Background(), 8)
	assert.ErrorIs(t, err, domain.ErrDrawNotFound)
}

func TestSyncRejectsConcurrentRuns(t *testing.T) {
	p := providerWith(1)
	p.started = make(chan struct{}, 1)
	p.blockCh = make(chan struct{})
	svc, _, _ := newTestService(t, p, 10)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background())
		done <- err
	}()

	<-p.started

	_, err := svc.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(p.blockCh)
	require.NoError(t, <-done)
}

// pausingStore blocks ListRecentDraws after it has read, so a concurrent Sync
// can land between the read and the cache fill.
type pausingStore struct {
	*sqlite.Store
	read    chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListRecentDraws(limit int) ([]domain.Draw, error) {
	draws, err := s.Store.ListRecentDraws(limit)
	if s.read != nil {
		s.read <- struct{}{}
		<-s.release
	}
	return draws, err
}

func TestRecentDoesNotCacheReadOverlappingSync(t *testing.T) {
	p := providerWith(1)
	_, store, cache := newTestService(t, p, 10)
	paused := &pausingStore{Store: store}
	svc := NewService(paused, p, cache, Options{MaxRounds: 10})

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	paused.read = make(chan struct{})
	paused.release = make(chan struct{})
	done := make(chan []domain.Draw, 1)
	go func() {
		draws, err := svc.Recent(context.Background(), 5)
		assert.NoError(t, err)
		done <- draws
	}()
	<-paused.read

	p.mu.Lock()
	p.draws[2] = makeDraw(2)
	p.mu.Unlock()
	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Stored())

	paused.read = nil
	close(paused.release)
	stale := <-done
	require.Len(t, stale, 1)

	draws, err := svc.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, 2, draws[0].Round)
}

func TestCacheAddIfCurrentDropsAfterInvalidate(t *testing.T) {
	cache, err := NewCache(4)
	require.NoError(t, err)

	epoch := cache.Epoch()
	cache.Invalidate()
	assert.False(t, cache.AddIfCurrent(5, []domain.Draw{makeDraw(1)}, epoch))
	assert.Equal(t, 0, cache.Len())

	assert.True(t, cache.AddIfCurrent(5, []domain.Draw{makeDraw(1)}, cache.Epoch()))
	assert.Equal(t, 1, cache.Len())
}
