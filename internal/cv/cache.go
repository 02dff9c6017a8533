package cv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/metrics"
	"github.com/spigell/jobscout/internal/profile"
)

// CacheKey identifies a cached generation.
type CacheKey struct {
	UserID     string
	PostingKey string
	TemplateID string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TemplateID, k.UserID, k.PostingKey)
}

// Cache keeps recent generations. A miss is (nil, nil).
type Cache interface {
	Get(ctx context.Context, key CacheKey) (*Generation, error)
	Put(ctx context.Context, key CacheKey, g *Generation) error
	// InvalidateTemplate drops every entry generated with templateID.
	InvalidateTemplate(ctx context.Context, templateID string) error
}

type memoryEntry struct {
	generation Generation
	expires    time.Time
}

// MemoryCache is a process local Cache with TTL eviction.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[CacheKey]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[CacheKey]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key CacheKey) (*Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, nil
	}
	g := e.generation
	return &g, nil
}

func (c *MemoryCache) Put(_ context.Context, key CacheKey, g *Generation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{generation: *g, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) InvalidateTemplate(_ context.Context, templateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if k.TemplateID == templateID {
			delete(c.entries, k)
		}
	}
	return nil
}

// CachedTrigger serves a cached generation for the same user, posting and
// template instead of rendering again.
type CachedTrigger struct {
	next    Generator
	cache   Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewCachedTrigger(next Generator, cache Cache, m *metrics.Metrics, logger *zap.Logger) *CachedTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTrigger{next: next, cache: cache, metrics: m, logger: logger}
}

func (t *CachedTrigger) Generate(ctx context.Context, session *profile.Session, templateID string, posting *discovery.Posting) (*Generation, error) {
	if session == nil || posting == nil {
		return t.next.Generate(ctx, session, templateID, posting)
	}

	key := CacheKey{UserID: session.UserID, PostingKey: posting.Key, TemplateID: templateID}

	cached, err := t.cache.Get(ctx, key)
	if err != nil {
		t.logger.Warn("cv cache lookup failed", zap.String("key", key.String()), zap.Error(err))
	} else if cached != nil {
		t.metrics.CacheHit()
		t.logger.Debug("cv cache hit", zap.String("key", key.String()), zap.String("generation_id", cached.ID))
		return cached, nil
	}

	g, err := t.next.Generate(ctx, session, templateID, posting)
	if err != nil {
		return nil, err
	}

	if err := t.cache.Put(ctx, key, g); err != nil {
		t.logger.Warn("cv cache store failed", zap.String("key", key.String()), zap.Error(err))
	}
	return g, nil
}

// InvalidateTemplate forwards to the cache.
func (t *CachedTrigger) InvalidateTemplate(ctx context.Context, templateID string) error {
	return t.cache.InvalidateTemplate(ctx, templateID)
}
