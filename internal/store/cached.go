package store

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
)

// CachedStore is a read-through LRU in front of another Store. Only lookups
// by id are cached; writes and deletes invalidate the entry.
//
// A fill only lands if no write completed while the backend read was in
// flight, so a slow read cannot resurrect a replaced record.
type CachedStore struct {
	inner Store
	byID  *lru.Cache[string, *model.ContractRecord]

	mu     sync.Mutex
	writes uint64
}

// NewCachedStore wraps inner with an LRU holding up to size records
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	c, err := lru.New[string, *model.ContractRecord](size)
	if err != nil {
		return nil, eris.Wrap(err, "create record cache")
	}
	return &CachedStore{inner: inner, byID: c}, nil
}

// FindByContentHash goes straight to the backend
func (s *CachedStore) FindByContentHash(ctx context.Context, digest string) (*model.ContractRecord, error) {
	return s.inner.FindByContentHash(ctx, digest)
}

// FindByID serves from the cache when possible
func (s *CachedStore) FindByID(ctx context.Context, id string) (*model.ContractRecord, error) {
	if rec, ok := s.byID.Get(id); ok {
		return cloneRecord(rec)
	}

	gen := s.generation()
	rec, err := s.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cached, err := cloneRecord(rec)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.writes == gen {
		s.byID.Add(id, cached)
	}
	s.mu.Unlock()
	return rec, nil
}

// Upsert writes through and drops the cached copy
func (s *CachedStore) Upsert(ctx context.Context, rec *model.ContractRecord) error {
	s.invalidate(rec.ID)
	defer s.invalidate(rec.ID)
	return s.inner.Upsert(ctx, rec)
}

// DeleteByID deletes through and drops the cached copy
func (s *CachedStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.invalidate(id)
	defer s.invalidate(id)
	return s.inner.DeleteByID(ctx, id)
}

func (s *CachedStore) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *CachedStore) invalidate(id string) {
	s.mu.Lock()
	s.writes++
	s.byID.Remove(id)
	s.mu.Unlock()
}

// ListSummaries goes straight to the backend
func (s *CachedStore) ListSummaries(ctx context.Context) ([]model.ContractSummary, error) {
	return s.inner.ListSummaries(ctx)
}

// Close purges the cache and closes the backend
func (s *CachedStore) Close() error {
	s.byID.Purge()
	return s.inner.Close()
}

// Len reports how many records are cached
func (s *CachedStore) Len() int {
	return s.byID.Len()
}
