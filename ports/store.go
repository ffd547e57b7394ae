package ports

import (
	"context"
	"time"
)

// Store is client-local persistent key/value storage.
// Get returns core.ErrNotFound when the key is absent.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
