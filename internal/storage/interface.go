package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key does not exist or has expired
var ErrNotFound = errors.New("key not found")

// KV defines the key-value contract used for alerts, caches and preferences.
// A zero ttl on Set means the key never expires.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Archive defines the contract for long-lived report storage
type Archive interface {
	Store(filename string, data []byte) error
	List(prefix string) ([]string, error)
	Delete(filename string) error
}
