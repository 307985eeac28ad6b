package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/treedensity/treedensity-cli/internal/db"
	"github.com/treedensity/treedensity-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dataset_cache (
	id         TEXT PRIMARY KEY,
	source_url TEXT NOT NULL UNIQUE,
	etag       TEXT NOT NULL DEFAULT '',
	body       BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dataset_cache_expires_at ON dataset_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, url string) (*model.CachedDataset, error) {
	var cd model.CachedDataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, source_url, etag, body, fetched_at, expires_at FROM dataset_cache WHERE source_url = $1`,
		url,
	).Scan(&cd.ID, &cd.SourceURL, &cd.ETag, &cd.Body, &cd.FetchedAt, &cd.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get dataset")
	}
	return &cd, nil
}

func (s *PostgresStore) PutDataset(ctx context.Context, url, etag string, body []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dataset_cache (id, source_url, etag, body, fetched_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (source_url) DO UPDATE SET etag = $3, body = $4, fetched_at = $5, expires_at = $6`,
		uuid.New().String(), url, etag, body, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: put dataset")
}

func (s *PostgresStore) TouchDataset(ctx context.Context, url string, ttl time.Duration) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dataset_cache SET expires_at = $1 WHERE source_url = $2`,
		time.Now().UTC().Add(ttl), url,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: touch dataset")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("dataset not found: %s", url)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dataset_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired datasets")
	}
	return int(tag.RowsAffected()), nil
}
