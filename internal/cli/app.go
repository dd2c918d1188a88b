package cli

import (
	"context"
	"io"

	"github.com/ppiankov/covenant/internal/cache"
	"github.com/ppiankov/covenant/internal/llm"
	"github.com/ppiankov/covenant/internal/logging"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/pipeline"
	"github.com/ppiankov/covenant/internal/score"
	"github.com/ppiankov/covenant/internal/search"
	"github.com/ppiankov/covenant/internal/store"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds everything a command needs, built from the resolved config
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	store    store.Store
	pipeline *pipeline.Pipeline
	closers  []io.Closer
}

// newApp wires the pipeline. withModel is false for commands that only read
// or rescore stored records, so they run without provider credentials.
func newApp(ctx context.Context, withModel bool) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose && level == "info" {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx, withModel); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, withModel bool) error {
	cfg := a.cfg

	scorer, err := score.NewScorer(score.Weights{
		Safety: cfg.Scoring.SafetyWeight,
		Value:  cfg.Scoring.ValueWeight,
	})
	if err != nil {
		return eris.Wrap(err, "scoring weights")
	}

	st, err := store.Open(ctx, cfg.Store, a.logger)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, st)

	opts := pipeline.Options{
		Store:          st,
		Scorer:         scorer,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         a.logger,
	}

	if cfg.Fetch.Enabled {
		opts.Fetcher = pipeline.NewFetcher(cfg.Fetch, cfg.Server.MaxUploadBytes, cfg.Search.HTTPProxy, cfg.Search.HTTPSProxy)
	}

	if withModel {
		provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg.LLM, cfg.Search))
		if err != nil {
			return err
		}
		if c, ok := provider.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		opts.Provider = provider

		searcher, err := search.New(cfg.Search, cache.New(cfg.Cache), a.logger)
		if err != nil {
			return eris.Wrap(err, "background search (set search.provider=none to skip background checks)")
		}
		opts.Checker = search.NewBackgroundChecker(searcher, a.logger)
		if !opts.Checker.Enabled() {
			a.logger.Warn("background checks disabled")
		}
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	a.pipeline = p
	return nil
}

// Close releases the store and provider clients and flushes the logger
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", logging.Err(err))
		}
	}
	_ = a.logger.Sync()
}
