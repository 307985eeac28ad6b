package model

import "time"

// CachedDataset is a raw dataset download kept by the cache store.
type CachedDataset struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"source_url"`
	ETag      string    `json:"etag,omitempty"`
	Body      []byte    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Fresh reports whether the entry can be served without revalidation.
func (c *CachedDataset) Fresh(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}
