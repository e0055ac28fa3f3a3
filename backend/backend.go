// Package backend defines the byte store abstraction used by kvstore.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. Stores that keep extra
// metadata next to the value (an expiry timestamp, a document envelope) must strip
// it again before returning.
//
// Encoding, namespacing and the overwrite/append modes live above this layer.
// A Backend only moves opaque bytes and enforces expiry.
package backend

import (
	"context"
	"time"
)

// Backend is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss or when the
	// entry is expired but not yet reaped.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value and expiry.
	// ttl <= 0 => no expiry.
	// Returns ok=false when the store declined the write (memory pressure).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Removing a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Traits describes the store to callers choosing a storage mode.
	Traits() Traits

	// Close releases resources.
	Close(ctx context.Context) error
}

// Expirer is implemented by stores with a native per-key expiry command.
// Expire sets or refreshes the expiry of an existing key without rewriting it
// through the caller. It reports false if the key does not exist.
// ttl <= 0 removes the key.
type Expirer interface {
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Traits is static information about a store.
type Traits struct {
	Name string
	// Durable stores survive process restarts.
	Durable bool
	// NativeTTL stores expire whole keys themselves. Stores without it filter
	// expired entries on read and reap them in the background.
	NativeTTL bool
}
