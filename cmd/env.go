package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/treedensity/treedensity-cli/internal/choropleth"
	"github.com/treedensity/treedensity-cli/internal/dataset"
	"github.com/treedensity/treedensity-cli/internal/density"
	"github.com/treedensity/treedensity-cli/internal/fetcher"
	"github.com/treedensity/treedensity-cli/internal/model"
	"github.com/treedensity/treedensity-cli/internal/store"
)

// analysisEnv holds the dependencies shared by commands that load a dataset.
type analysisEnv struct {
	Store    store.Store
	Loader   *dataset.Loader
	Analyzer *density.Analyzer
}

// Close releases the cache store, if any.
func (e *analysisEnv) Close() {
	if e.Store == nil {
		return
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "treedensity.db"
		}
		s, err = store.NewSQLite(dsn)
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func initFetcher() fetcher.Fetcher {
	return fetcher.NewMultiFetcher(
		fetcher.HTTPOptions{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.Timeout(),
			MaxRetries:  cfg.Fetch.MaxRetries,
			RatePerHost: cfg.Fetch.RatePerHost,
		},
		fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout()},
	)
}

func initAnalysis(ctx context.Context) (*analysisEnv, error) {
	policy, err := density.ParsePolicy(cfg.Analysis.InvalidArea)
	if err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return &analysisEnv{
		Store:    st,
		Loader:   dataset.NewLoader(initFetcher(), st, cfg.Store.TTL()),
		Analyzer: density.New(policy),
	}, nil
}

func configuredSources() dataset.Sources {
	return dataset.Sources{
		Municipalities: cfg.Sources.Municipalities,
		Centres:        cfg.Sources.Centres,
	}
}

// buildScale classifies the usable densities of records. It returns a nil
// scale when no record has a usable density.
func buildScale(records []model.Municipality) (*choropleth.QuantileScale, error) {
	values := density.Densities(records)
	if len(values) == 0 {
		return nil, nil
	}
	return choropleth.NewGreensScale(values, cfg.Choropleth.Classes)
}
