package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Open builds the backend named by cfg.Driver and, when cfg.CacheSize is
// positive, puts an LRU in front of it
func Open(ctx context.Context, cfg model.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		s = NewMemoryStore()
	case "file", "json":
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "contracts.json")
		}
		s, err = NewFileStore(path)
	case "badger", "":
		s, err = NewBadgerStore(BadgerConfig{Dir: cfg.Path}, logger)
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for the postgres driver")
		}
		s, err = NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("store opened", zap.String("driver", cfg.Driver), zap.String("path", cfg.Path))

	if cfg.CacheSize > 0 {
		cached, err := NewCachedStore(s, cfg.CacheSize)
		if err != nil {
			s.Close()
			return nil, err
		}
		return cached, nil
	}
	return s, nil
}
