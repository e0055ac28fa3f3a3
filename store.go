package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/kvstore/backend"
	c "github.com/unkn0wn-root/kvstore/codec"
	"github.com/unkn0wn-root/kvstore/internal/util"
	"github.com/unkn0wn-root/kvstore/internal/wire"
)

const defaultTimeout = 5 * time.Second

// base holds everything both modes share. It owns no entry state; the backend
// handle is shared by all calls.
type base[V any] struct {
	ns      string
	be      backend.Backend
	codec   c.Codec[V]
	log     Logger
	hooks   Hooks
	timeout time.Duration
	mode    Mode
}

func newBase[V any](opts Options[V], mode Mode) (*base[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("kvstore: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("kvstore: codec is required")
	}

	b := &base[V]{
		ns:    opts.Namespace,
		be:    opts.Backend,
		codec: opts.Codec,
		mode:  mode,
	}

	// defaults
	b.log = coalesce[Logger](opts.Logger, NopLogger{})
	b.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	b.timeout = coalesce[time.Duration](opts.Timeout, defaultTimeout)

	b.log.Debug("store ready", Fields{"backend": b.be.Traits().Name, "mode": mode.String(), "ns": b.ns})
	return b, nil
}

func (b *base[V]) Mode() Mode { return b.mode }

func (b *base[V]) Close(ctx context.Context) error {
	return b.be.Close(ctx)
}

func (b *base[V]) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	k := b.storageKey(key)
	if err := b.be.Del(ctx, k); err != nil {
		b.hooks.BackendFailed("delete", k, err)
		return newError(KindBackendDeleteFailed, "delete", key, err)
	}
	return nil
}

func (b *base[V]) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ex, ok := b.be.(backend.Expirer)
	if !ok {
		return false, newError(KindUnsupported, "expire", key,
			fmt.Errorf("%s backend manages expiry itself", b.be.Traits().Name))
	}

	ctx, cancel := b.bound(ctx)
	defer cancel()

	k := b.storageKey(key)
	found, err := ex.Expire(ctx, k, ttl)
	if err != nil {
		b.hooks.BackendFailed("expire", k, err)
		return false, newError(KindBackendWriteFailed, "expire", key, err)
	}
	if !found {
		b.log.Debug("expire on missing key", Fields{"key": key})
	}
	return found, nil
}

// write stores raw under k. ttl <= 0 from SetWithExpiry arrives here as
// expireNow and removes the key instead; a plain Set passes ttl 0.
func (b *base[V]) write(ctx context.Context, op, key, k string, raw []byte, ttl time.Duration, expireNow bool) error {
	if expireNow {
		if err := b.be.Del(ctx, k); err != nil {
			b.hooks.BackendFailed("set", k, err)
			return newError(KindBackendWriteFailed, op, key, err)
		}
		return nil
	}
	ok, err := b.be.Set(ctx, k, raw, ttl)
	if err != nil {
		b.hooks.BackendFailed("set", k, err)
		return newError(KindBackendWriteFailed, op, key, err)
	}
	if !ok {
		b.hooks.WriteDropped(k)
		b.log.Debug("write declined by backend (pressure)", Fields{"key": key})
	}
	return nil
}

func (b *base[V]) read(ctx context.Context, key, k string) ([]byte, bool, error) {
	raw, ok, err := b.be.Get(ctx, k)
	if err != nil {
		b.hooks.BackendFailed("get", k, err)
		return nil, false, newError(KindBackendReadFailed, "get", key, err)
	}
	return raw, ok, nil
}

func (b *base[V]) encode(op, key string, v V) ([]byte, error) {
	payload, err := b.codec.Encode(v)
	if err != nil {
		return nil, newError(KindSerializationFailed, op, key, err)
	}
	return payload, nil
}

func (b *base[V]) decode(key, k string, payload []byte) (V, error) {
	v, err := b.codec.Decode(payload)
	if err != nil {
		b.hooks.DecodeFailed(k, "codec", err)
		var zero V
		return zero, newError(KindDeserializationFailed, "get", key, err)
	}
	return v, nil
}

func (b *base[V]) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout < 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *base[V]) storageKey(key string) string {
	return util.StorageKey(b.ns, key)
}

// valueStore keeps one value per key.
type valueStore[V any] struct {
	*base[V]
}

var _ Values[struct{}] = (*valueStore[struct{}])(nil)

func (s *valueStore[V]) Set(ctx context.Context, key string, value V) error {
	return s.set(ctx, "set", key, value, 0, false)
}

func (s *valueStore[V]) SetWithExpiry(ctx context.Context, key string, value V, ttl time.Duration) error {
	return s.set(ctx, "set_with_expiry", key, value, ttl, ttl <= 0)
}

func (s *valueStore[V]) set(ctx context.Context, op, key string, value V, ttl time.Duration, expireNow bool) error {
	payload, err := s.encode(op, key, value)
	if err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.write(ctx, op, key, s.storageKey(key), payload, ttl, expireNow)
}

func (s *valueStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	ctx, cancel := s.bound(ctx)
	defer cancel()

	k := s.storageKey(key)
	raw, ok, err := s.read(ctx, key, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := s.decode(key, k, raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// appendStore keeps an ordered collection per key. See Log for the
// concurrency caveat of Set.
type appendStore[V any] struct {
	*base[V]
}

var _ Log[struct{}] = (*appendStore[struct{}])(nil)

func (s *appendStore[V]) Set(ctx context.Context, key string, value V) error {
	return s.append(ctx, "set", key, value, 0, false)
}

func (s *appendStore[V]) SetWithExpiry(ctx context.Context, key string, value V, ttl time.Duration) error {
	return s.append(ctx, "set_with_expiry", key, value, ttl, ttl <= 0)
}

// append reads the stored collection, adds value and writes the whole
// collection back. Nothing guards the window between the read and the write.
func (s *appendStore[V]) append(ctx context.Context, op, key string, value V, ttl time.Duration, expireNow bool) error {
	payload, err := s.encode(op, key, value)
	if err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	k := s.storageKey(key)
	if expireNow {
		// the whole collection expires with the key; no need to read it
		return s.write(ctx, op, key, k, nil, 0, true)
	}

	raw, ok, err := s.read(ctx, key, k)
	if err != nil {
		return err
	}
	var items [][]byte
	if ok {
		items, err = wire.DecodeList(raw)
		if err != nil {
			// refuse to replace data we cannot read
			s.hooks.DecodeFailed(k, "frame", err)
			return newError(KindDeserializationFailed, op, key, err)
		}
	}
	items = append(items, payload)

	framed, err := wire.EncodeList(items)
	if err != nil {
		return newError(KindSerializationFailed, op, key, err)
	}
	if err := s.write(ctx, op, key, k, framed, ttl, false); err != nil {
		return err
	}
	s.hooks.Appended(k, len(items))
	return nil
}

func (s *appendStore[V]) Get(ctx context.Context, key string) ([]V, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	k := s.storageKey(key)
	raw, ok, err := s.read(ctx, key, k)
	if err != nil || !ok {
		return nil, false, err
	}
	items, err := wire.DecodeList(raw)
	if err != nil {
		s.hooks.DecodeFailed(k, "frame", err)
		return nil, false, newError(KindDeserializationFailed, "get", key, err)
	}
	out := make([]V, 0, len(items))
	for _, it := range items {
		v, err := s.decode(key, k, it)
		if err != nil {
			return nil, false, err
		}
		out = append(out, v)
	}
	return out, true, nil
}

// IsTimeout reports whether err came from an operation that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
