// Package bigcache is an in-process ephemeral backend on bigcache.
//
// bigcache only evicts by a global LifeWindow, so each entry carries an 8-byte
// expiresAt header (unix nanos, 0 = none) checked on read. LifeWindow still caps
// every entry's lifetime; size it above the longest TTL in use.
package bigcache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/kvstore/backend"
)

const headerLen = 8

type BigCache struct {
	c   *bc.BigCache
	now func() time.Time
}

var (
	_ backend.Backend = (*BigCache)(nil)
	_ backend.Expirer = (*BigCache)(nil)
)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*BigCache, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c, now: time.Now}, nil
}

func (p *BigCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(b) < headerLen || p.expired(b) {
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	return b[headerLen:], true, nil
}

func (p *BigCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := p.c.Set(key, p.frame(value, ttl)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *BigCache) Del(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Expire rewrites the entry header with the new deadline.
func (p *BigCache) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	b, ok, err := p.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if ttl <= 0 {
		return true, p.Del(ctx, key)
	}
	return p.Set(ctx, key, b, ttl)
}

func (p *BigCache) Traits() backend.Traits {
	return backend.Traits{Name: "bigcache", Durable: false, NativeTTL: true}
}

func (p *BigCache) Close(_ context.Context) error {
	return p.c.Close()
}

func (p *BigCache) frame(value []byte, ttl time.Duration) []byte {
	var at int64
	if ttl > 0 {
		at = p.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf[:headerLen], uint64(at))
	copy(buf[headerLen:], value)
	return buf
}

func (p *BigCache) expired(entry []byte) bool {
	at := int64(binary.BigEndian.Uint64(entry[:headerLen]))
	return at > 0 && p.now().UnixNano() >= at
}
