// Package store caches downloaded dataset bodies keyed by source URL.
package store

import (
	"context"
	"time"

	"github.com/treedensity/treedensity-cli/internal/model"
)

// Store defines the persistence interface for the dataset download cache.
type Store interface {
	// GetDataset returns the cached entry for url, including expired
	// entries so their ETag can be revalidated. A miss returns (nil, nil).
	GetDataset(ctx context.Context, url string) (*model.CachedDataset, error)
	// PutDataset inserts or replaces the entry for url.
	PutDataset(ctx context.Context, url, etag string, body []byte, ttl time.Duration) error
	// TouchDataset extends the expiry of an existing entry after a
	// successful revalidation.
	TouchDataset(ctx context.Context, url string, ttl time.Duration) error
	// DeleteExpired removes entries past their expiry.
	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
