// Package db defines the key-value store contract backing the embedding
// cache. The knowledge-base index itself persists to a local artifact and
// does not go through this layer.
package db

import (
	"context"
	"time"
)

// Store is the key-value facade implemented by the Redis driver.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
