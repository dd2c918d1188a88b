package store

import (
	"context"
	"sync"

	"github.com/ppiankov/covenant/internal/model"
)

// MemoryStore keeps encoded records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte // id -> encoded record
	byHash  map[string]string // file hash -> id
	order   []string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		byHash:  make(map[string]string),
	}
}

// FindByContentHash returns the record for a content digest
func (s *MemoryStore) FindByContentHash(ctx context.Context, digest string) (*model.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[digest]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(s.records[id])
}

// FindByID returns the record with the given id
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(data)
}

// Upsert replaces or appends a record
func (s *MemoryStore) Upsert(ctx context.Context, rec *model.ContractRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.ID]; ok {
		prev, err := decodeRecord(existing)
		if err != nil {
			return err
		}
		if err := checkHashUnchanged(prev, rec); err != nil {
			return err
		}
	} else {
		s.order = append(s.order, rec.ID)
	}

	s.records[rec.ID] = data
	s.byHash[rec.FileHash] = rec.ID
	return nil
}

// DeleteByID removes a record if present
func (s *MemoryStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.records[id]
	if !ok {
		return false, nil
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return false, err
	}

	delete(s.records, id)
	if s.byHash[rec.FileHash] == id {
		delete(s.byHash, rec.FileHash)
	}
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// ListSummaries returns projections of every record
func (s *MemoryStore) ListSummaries(ctx context.Context) ([]model.ContractSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ContractSummary, 0, len(s.order))
	for _, id := range s.order {
		rec, err := decodeRecord(s.records[id])
		if err != nil {
			return nil, err
		}
		out = append(out, rec.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
