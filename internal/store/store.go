package store

import (
	"context"

	"github.com/joescharf/reviewgate/internal/models"
)

// Cache is the persistent key→value store for resolved reference metadata.
// Get returns (nil, nil) on a miss. Entries never expire automatically and
// are shared across runs.
type Cache interface {
	Get(ctx context.Context, key string) (*models.ResolvedReference, error)
	Put(ctx context.Context, key string, ref models.ResolvedReference) error
	Close() error
}
