package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	contractPrefix = "contract:"
	hashPrefix     = "hash:"
)

// BadgerConfig configures the embedded key-value backend
type BadgerConfig struct {
	// Dir is where BadgerDB keeps its files. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM (useful for tests)
	InMemory bool

	// SyncWrites fsyncs every commit
	SyncWrites bool
}

// BadgerStore keeps one key per record plus a hash -> id index key
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB-backed store
func NewBadgerStore(cfg BadgerConfig, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, eris.Wrap(err, "open badger")
	}
	return &BadgerStore{db: db}, nil
}

// FindByContentHash returns the record for a content digest
func (s *BadgerStore) FindByContentHash(ctx context.Context, digest string) (*model.ContractRecord, error) {
	var rec *model.ContractRecord
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getValue(txn, hashPrefix+digest)
		if err != nil {
			return err
		}
		rec, err = getRecord(txn, string(id))
		return err
	})
	return rec, err
}

// FindByID returns the record with the given id
func (s *BadgerStore) FindByID(ctx context.Context, id string) (*model.ContractRecord, error) {
	var rec *model.ContractRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	return rec, err
}

// Upsert replaces or appends a record in a single transaction
func (s *BadgerStore) Upsert(ctx context.Context, rec *model.ContractRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := getRecord(txn, rec.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := checkHashUnchanged(existing, rec); err != nil {
			return err
		}

		if err := txn.Set([]byte(contractPrefix+rec.ID), data); err != nil {
			return eris.Wrapf(err, "write contract %s", rec.ID)
		}
		if err := txn.Set([]byte(hashPrefix+rec.FileHash), []byte(rec.ID)); err != nil {
			return eris.Wrapf(err, "write hash index for %s", rec.ID)
		}
		return nil
	})
}

// DeleteByID removes a record and its hash index entry
func (s *BadgerStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete([]byte(contractPrefix + id)); err != nil {
			return eris.Wrapf(err, "delete contract %s", id)
		}
		owner, err := getValue(txn, hashPrefix+rec.FileHash)
		if err == nil && string(owner) == id {
			if err := txn.Delete([]byte(hashPrefix + rec.FileHash)); err != nil {
				return eris.Wrapf(err, "delete hash index for %s", id)
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// ListSummaries scans every record key
func (s *BadgerStore) ListSummaries(ctx context.Context) ([]model.ContractSummary, error) {
	out := []model.ContractSummary{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(contractPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					return err
				}
				out = append(out, rec.Summary())
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSummaries(out)
	return out, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func getRecord(txn *badger.Txn, id string) (*model.ContractRecord, error) {
	data, err := getValue(txn, contractPrefix+id)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func getValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get %s", key)
	}
	return item.ValueCopy(nil)
}

// badgerLogger routes BadgerDB's logging through zap
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
