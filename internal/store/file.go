package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
)

// FileStore keeps the whole collection in one JSON file that is read and
// rewritten in full on every write. Concurrent writers from separate
// processes get last-write-wins.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrap(err, "create store dir")
	}
	return &FileStore{path: path}, nil
}

// FindByContentHash returns the record for a content digest
func (s *FileStore) FindByContentHash(ctx context.Context, digest string) (*model.ContractRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].FileHash == digest {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// FindByID returns the record with the given id
func (s *FileStore) FindByID(ctx context.Context, id string) (*model.ContractRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// Upsert replaces or appends a record and rewrites the file
func (s *FileStore) Upsert(ctx context.Context, rec *model.ContractRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].ID != rec.ID {
			continue
		}
		if err := checkHashUnchanged(&records[i], rec); err != nil {
			return err
		}
		records[i] = *rec
		replaced = true
		break
	}
	if !replaced {
		records = append(records, *rec)
	}

	return s.save(records)
}

// DeleteByID removes a record if present
func (s *FileStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range records {
		if records[i].ID == id {
			records = append(records[:i], records[i+1:]...)
			return true, s.save(records)
		}
	}
	return false, nil
}

// ListSummaries returns projections of every record
func (s *FileStore) ListSummaries(ctx context.Context) ([]model.ContractSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.ContractSummary, 0, len(records))
	for i := range records {
		out = append(out, records[i].Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() ([]model.ContractRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "read store file")
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []model.ContractRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "decode store file %s", s.path)
	}
	return records, nil
}

// save writes to a temp file and renames it so a crash never leaves a
// half-written collection
func (s *FileStore) save(records []model.ContractRecord) error {
	if records == nil {
		records = []model.ContractRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode store file")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return eris.Wrap(err, "write store file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrap(err, "replace store file")
	}
	return nil
}
