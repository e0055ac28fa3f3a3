package kvstore

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvstore/backend"
	c "github.com/unkn0wn-root/kvstore/codec"
)

// Store is the backend-agnostic storage contract.
// V is the caller's value type; R is what Get returns: V for an overwrite store,
// []V for an append store.
type Store[V, R any] interface {
	Set(ctx context.Context, key string, value V) error
	// SetWithExpiry is Set plus an expiry of now+ttl. ttl <= 0 expires the key immediately.
	SetWithExpiry(ctx context.Context, key string, value V, ttl time.Duration) error
	Get(ctx context.Context, key string) (r R, ok bool, err error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// Expire refreshes the expiry of a stored key. Only backends with a native
	// expiry command support it; others return a KindUnsupported error.
	Expire(ctx context.Context, key string, ttl time.Duration) (ok bool, err error)

	Mode() Mode
	Close(ctx context.Context) error
}

// Values is an overwrite store: Set replaces the value under a key.
type Values[V any] interface {
	Store[V, V]
}

// Log is an append store: Set adds value to the ordered collection under a key
// and Get returns the whole collection.
//
// Appending is a read-modify-write of the full collection, not an atomic
// backend operation. Two writers appending to the same key at the same time can
// both read the same collection, and the later write-back drops the other's
// value. Callers needing every append to survive must serialize writers per key.
type Log[V any] interface {
	Store[V, []V]
}

// Mode selects overwrite or append semantics for a store.
type Mode uint8

const (
	ModeOverwrite Mode = iota + 1
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeOverwrite:
		return "overwrite"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

// ModeFor returns the default mode for a backend: durable stores keep the latest
// snapshot per key, caches keep an event log per key.
func ModeFor(t backend.Traits) Mode {
	if t.Durable {
		return ModeOverwrite
	}
	return ModeAppend
}

// Options tune a store.
// Only Backend and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Backend backend.Backend
	Codec   c.Codec[V]

	Namespace string        // optional key prefix, e.g. "session" => "session:<key>"
	Logger    Logger        // if nil, NopLogger is used
	Hooks     Hooks         // if nil, NopHooks is used
	Timeout   time.Duration // per operation; 0 => 5s, < 0 => caller's context only
}

// NewValues returns an overwrite store.
func NewValues[V any](opts Options[V]) (Values[V], error) {
	b, err := newBase(opts, ModeOverwrite)
	if err != nil {
		return nil, err
	}
	return &valueStore[V]{base: b}, nil
}

// NewLog returns an append store.
func NewLog[V any](opts Options[V]) (Log[V], error) {
	b, err := newBase(opts, ModeAppend)
	if err != nil {
		return nil, err
	}
	return &appendStore[V]{base: b}, nil
}
