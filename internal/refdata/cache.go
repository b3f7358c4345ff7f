package refdata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dunskii/studyhub/internal/platform/metrics"
	"github.com/dunskii/studyhub/internal/store"
)

// Provider hands out the current reference data snapshot.
type Provider interface {
	Get(ctx context.Context) (*Snapshot, error)
}

// Cache is a process-wide Provider backed by a ReferenceDataStore.
type Cache struct {
	source  store.ReferenceDataStore
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	group      singleflight.Group
	mu         sync.RWMutex
	snapshot   *Snapshot
	generation uint64
}

// NewCache creates an empty cache over source. The first Get loads it.
func NewCache(source store.ReferenceDataStore, logger *slog.Logger, rec *metrics.Recorder) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source:  source,
		logger:  logger.With(slog.String("component", "refdata_cache")),
		metrics: rec,
		now:     time.Now,
	}
}

// Get returns the cached snapshot, loading it if the cache is empty.
// Concurrent callers share one load. A failed load is not cached.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap, gen := c.snapshot, c.generation
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do("snapshot", func() (interface{}, error) {
		// The load must outlive the first caller's cancellation since other
		// callers wait on it.
		loadCtx := context.WithoutCancel(ctx)
		s, err := Build(loadCtx, c.source, c.now())
		c.metrics.RefdataLoad(err)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to load reference data", slog.Any("error", err))
			return nil, err
		}

		c.mu.Lock()
		// Drop the result if Invalidate ran while loading.
		if c.generation == gen {
			c.snapshot = s
		}
		c.mu.Unlock()

		c.logger.InfoContext(ctx, "reference data loaded",
			slog.Int("activities", len(s.Rules.Activities)),
			slog.Int("achievements", len(s.Rules.Achievements)),
			slog.Int("subjects", len(s.Subjects)),
			slog.Int("max_level", s.Ledger.Levels().MaxLevel()))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate discards the cached snapshot; the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.generation++
	c.mu.Unlock()
	c.group.Forget("snapshot")
	c.logger.Info("reference data invalidated")
}

// Static is a Provider that always returns the same snapshot.
type Static struct {
	Snapshot *Snapshot
}

// Get returns the fixed snapshot.
func (s Static) Get(context.Context) (*Snapshot, error) {
	return s.Snapshot, nil
}
