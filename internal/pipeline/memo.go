package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
)

// LoadHook is called after each fresh load with the new dataset. It must not
// modify the dataset.
type LoadHook func(ctx context.Context, ds *domain.Dataset)

// Memo caches loaded datasets keyed on source identity. Concurrent misses for
// the same key share one load. Failed loads are never cached.
type Memo struct {
	loader  *Loader
	cache   *lruCache[string, cachedDataset]
	group   singleflight.Group
	clock   clockwork.Clock
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	hooks  []LoadHook
	latest map[string]string // source name -> key of its newest load
	ready  atomic.Bool
	loaded atomic.Int64
}

type cachedDataset struct {
	ds       *domain.Dataset
	loadedAt time.Time
}

// NewMemo creates a dataset cache holding up to size entries. A zero ttl
// keeps entries until they are evicted or invalidated.
func NewMemo(loader *Loader, size int, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Memo {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memo{
		loader:  loader,
		cache:   newLRUCache[string, cachedDataset](size),
		clock:   clock,
		ttl:     ttl,
		logger:  logger.With("component", "memo"),
		metrics: metrics,
		latest:  make(map[string]string),
	}
}

// OnLoad registers a hook run after every fresh load.
func (m *Memo) OnLoad(hook LoadHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Get returns the dataset for src, loading it on a miss.
func (m *Memo) Get(ctx context.Context, src Source) (*domain.Dataset, error) {
	key, err := src.Key(ctx)
	if err != nil {
		return nil, err
	}

	if c, ok := m.cache.get(key); ok && !m.expired(c) {
		m.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return c.ds, nil
	}
	m.metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, shared := m.group.Do(key, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		loadCtx := context.WithoutCancel(ctx)
		ds, err := m.loader.Load(loadCtx, src)
		if err != nil {
			return nil, err
		}
		c := cachedDataset{ds: &ds, loadedAt: m.clock.Now()}
		m.cache.put(key, c)
		m.supersede(src.String(), key)
		m.ready.Store(true)
		m.loaded.Add(1)
		m.runHooks(loadCtx, c.ds)
		return c.ds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("shared in-flight load", "key", key)
	}
	return v.(*domain.Dataset), nil
}

// Invalidate drops the cached dataset for src's current key.
func (m *Memo) Invalidate(ctx context.Context, src Source) error {
	key, err := src.Key(ctx)
	if err != nil {
		return err
	}
	if m.cache.delete(key) {
		m.logger.Info("dataset invalidated", "key", key)
	}
	return nil
}

// InvalidateAll empties the cache.
func (m *Memo) InvalidateAll() {
	m.cache.clear()
	m.logger.Info("dataset cache cleared")
}

// Len returns the number of cached datasets.
func (m *Memo) Len() int {
	return m.cache.len()
}

// Loads returns the number of fresh loads performed so far.
func (m *Memo) Loads() int64 {
	return m.loaded.Load()
}

// CheckReadiness returns nil once at least one dataset has loaded.
func (m *Memo) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("no dataset has been loaded yet")
	}
	return nil
}

func (m *Memo) expired(c cachedDataset) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.clock.Since(c.loadedAt) >= m.ttl
}

// supersede records key as the newest for the named source and drops the
// entry cached under its previous key, which can no longer be requested.
func (m *Memo) supersede(name, key string) {
	m.mu.Lock()
	prev, ok := m.latest[name]
	m.latest[name] = key
	m.mu.Unlock()

	if ok && prev != key && m.cache.delete(prev) {
		m.logger.Debug("superseded dataset dropped", "source", name, "key", prev)
	}
}

func (m *Memo) runHooks(ctx context.Context, ds *domain.Dataset) {
	m.mu.RLock()
	hooks := append([]LoadHook(nil), m.hooks...)
	m.mu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, ds)
	}
}
