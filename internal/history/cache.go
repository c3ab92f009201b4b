package history

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"lottobot/internal/domain"
	"lottobot/internal/metrics"
)

// Cache holds recent-draw windows keyed by window size. It is owned by the
// Service's caller and must be invalidated whenever stored draws change.
type Cache struct {
	windows *lru.Cache[int, []domain.Draw]

	mu    sync.Mutex
	epoch uint64 // bumped by every Invalidate
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.New[int, []domain.Draw](size)
	if err != nil {
		return nil, err
	}
	return &Cache{windows: c}, nil
}

func (c *Cache) Get(window int) ([]domain.Draw, bool) {
	draws, ok := c.windows.Get(window)
	metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	return append([]domain.Draw(nil), draws...), true
}

// Epoch identifies the current generation of cached data. Read it before
// loading from the store and pass it to AddIfCurrent.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// AddIfCurrent stores draws unless the cache was invalidated after epoch was
// read, in which case draws may be stale and are dropped.
func (c *Cache) AddIfCurrent(window int, draws []domain.Draw, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	c.windows.Add(window, append([]domain.Draw(nil), draws...))
	return true
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.windows.Purge()
}

func (c *Cache) Len() int {
	return c.windows.Len()
}
