package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound is returned when a lookup by id or content hash misses
	ErrNotFound = errors.New("contract not found")

	// ErrContentHashMismatch is returned when an upsert would change the
	// content hash of an existing record
	ErrContentHashMismatch = errors.New("content hash of an existing contract cannot change")
)

// Store is the durable collection of contract records. Upsert is the only
// write primitive and always replaces a record as a whole.
type Store interface {
	// FindByContentHash returns the record whose uploaded bytes hash to digest
	FindByContentHash(ctx context.Context, digest string) (*model.ContractRecord, error)

	// FindByID returns the record with the given id
	FindByID(ctx context.Context, id string) (*model.ContractRecord, error)

	// Upsert replaces the record with the same id or appends a new one
	Upsert(ctx context.Context, rec *model.ContractRecord) error

	// DeleteByID removes the record and reports whether anything was removed
	DeleteByID(ctx context.Context, id string) (bool, error)

	// ListSummaries returns lightweight projections ordered by upload date
	ListSummaries(ctx context.Context) ([]model.ContractSummary, error)

	// Close releases the backend
	Close() error
}

// HashContent returns the lowercase hex SHA-256 digest of the exact bytes
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func validateRecord(rec *model.ContractRecord) error {
	if rec == nil {
		return eris.New("nil contract record")
	}
	if rec.ID == "" {
		return eris.New("contract record has no id")
	}
	if rec.FileHash == "" {
		return eris.Errorf("contract %s has no file hash", rec.ID)
	}
	return nil
}

func checkHashUnchanged(existing, rec *model.ContractRecord) error {
	if existing != nil && existing.FileHash != rec.FileHash {
		return eris.Wrapf(ErrContentHashMismatch, "contract %s", rec.ID)
	}
	return nil
}

func encodeRecord(rec *model.ContractRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrapf(err, "encode contract %s", rec.ID)
	}
	return data, nil
}

func decodeRecord(data []byte) (*model.ContractRecord, error) {
	var rec model.ContractRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "decode contract")
	}
	return &rec, nil
}

// cloneRecord returns a deep copy so callers never share state with a store
func cloneRecord(rec *model.ContractRecord) (*model.ContractRecord, error) {
	data, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func sortSummaries(out []model.ContractSummary) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Uploaded.Before(out[j].Uploaded)
	})
}
