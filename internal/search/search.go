// Package search runs web searches for counterparty background checks.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/cache"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Searcher runs one query and returns an opaque result payload
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) (*model.BackgroundResult, error)
}

// New builds the searcher named in cfg, wrapped in c unless c is nil
func New(cfg model.SearchConfig, c cache.Cache, logger *zap.Logger) (Searcher, error) {
	var s Searcher
	switch strings.ToLower(cfg.Provider) {
	case "tavily":
		t, err := NewTavily(cfg)
		if err != nil {
			return nil, err
		}
		s = t
	case "", "none":
		return nil, nil
	default:
		return nil, eris.Errorf("unknown search provider: %s (supported: tavily)", cfg.Provider)
	}

	if c != nil {
		s = NewCached(s, c, cfg.MaxResults, 0, logger)
	}
	return s, nil
}

// Cached serves repeated queries from a cache
type Cached struct {
	inner      Searcher
	cache      cache.Cache
	maxResults int
	ttl        time.Duration
	logger     *zap.Logger
}

// NewCached wraps inner. A zero ttl uses the cache's default.
func NewCached(inner Searcher, c cache.Cache, maxResults int, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, cache: c, maxResults: maxResults, ttl: ttl, logger: logger}
}

// Name returns the wrapped searcher's name
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Search returns a cached result or runs and caches the query
func (c *Cached) Search(ctx context.Context, query string) (*model.BackgroundResult, error) {
	key := cache.QueryKey(c.inner.Name(), query, c.maxResults)

	var hit model.BackgroundResult
	if cache.GetJSON(c.cache, key, &hit) {
		c.logger.Debug("search cache hit", zap.String("query", query))
		return &hit, nil
	}

	res, err := c.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(c.cache, key, res, c.ttl); err != nil {
		c.logger.Warn("search cache write failed", zap.String("query", query), zap.Error(err))
	}
	return res, nil
}
