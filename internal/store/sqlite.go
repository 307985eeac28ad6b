package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/treedensity/treedensity-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are unix nanoseconds so that expiry comparisons stay numeric.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dataset_cache (
	id         TEXT PRIMARY KEY,
	source_url TEXT NOT NULL UNIQUE,
	etag       TEXT NOT NULL DEFAULT '',
	body       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dataset_cache_expires_at ON dataset_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDataset(ctx context.Context, url string) (*model.CachedDataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_url, etag, body, fetched_at, expires_at FROM dataset_cache WHERE source_url = ?`,
		url,
	)

	var cd model.CachedDataset
	var fetchedAt, expiresAt int64
	err := row.Scan(&cd.ID, &cd.SourceURL, &cd.ETag, &cd.Body, &fetchedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get dataset")
	}
	cd.FetchedAt = time.Unix(0, fetchedAt).UTC()
	cd.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &cd, nil
}

func (s *SQLiteStore) PutDataset(ctx context.Context, url, etag string, body []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_cache (id, source_url, etag, body, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_url) DO UPDATE SET etag = excluded.etag, body = excluded.body,
		   fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		uuid.New().String(), url, etag, body, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	return eris.Wrap(err, "sqlite: put dataset")
}

func (s *SQLiteStore) TouchDataset(ctx context.Context, url string, ttl time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dataset_cache SET expires_at = ? WHERE source_url = ?`,
		time.Now().UTC().Add(ttl).UnixNano(), url,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: touch dataset")
	}
	return checkRowsAffected(res, "dataset", url)
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dataset_cache WHERE expires_at <= ?`,
		time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired datasets")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
