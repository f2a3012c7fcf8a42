package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Store is a flat byte-valued key-value store. Callers own key naming and
// serialization; implementations only need to be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// SetNX writes value only when key is absent and reports whether it did.
	// A positive ttl expires the key; otherwise the store's default applies.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}
