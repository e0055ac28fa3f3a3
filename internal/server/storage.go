package server

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/codec"
)

// Storage is what the HTTP handlers need from a store of records, whichever
// mode it runs in. Get returns a codec.Record in overwrite mode and a
// []codec.Record in append mode.
type Storage interface {
	Set(ctx context.Context, key string, rec codec.Record) error
	SetWithExpiry(ctx context.Context, key string, rec codec.Record, ttl time.Duration) error
	Get(ctx context.Context, key string) (any, bool, error)
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Mode() kvstore.Mode
}

// Adapt exposes a Values or Log store of records as Storage.
func Adapt[R any](s kvstore.Store[codec.Record, R]) Storage {
	return adapter[R]{s: s}
}

type adapter[R any] struct {
	s kvstore.Store[codec.Record, R]
}

func (a adapter[R]) Set(ctx context.Context, key string, rec codec.Record) error {
	return a.s.Set(ctx, key, rec)
}

func (a adapter[R]) SetWithExpiry(ctx context.Context, key string, rec codec.Record, ttl time.Duration) error {
	return a.s.SetWithExpiry(ctx, key, rec, ttl)
}

func (a adapter[R]) Get(ctx context.Context, key string) (any, bool, error) {
	r, ok, err := a.s.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return r, true, nil
}

func (a adapter[R]) Delete(ctx context.Context, key string) error {
	return a.s.Delete(ctx, key)
}

func (a adapter[R]) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return a.s.Expire(ctx, key, ttl)
}

func (a adapter[R]) Mode() kvstore.Mode { return a.s.Mode() }
