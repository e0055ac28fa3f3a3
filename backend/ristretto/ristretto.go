// Package ristretto is an in-process ephemeral backend on a ristretto cache.
// Entries are admitted by TinyLFU with cost = value length, so a write can be
// declined under pressure (Set returns ok=false).
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/kvstore/backend"
)

type Ristretto struct {
	c *rc.Cache
}

var (
	_ backend.Backend = (*Ristretto)(nil)
	_ backend.Expirer = (*Ristretto)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64 // bytes
	BufferItems int64
	Metrics     bool
}

// DefaultConfig sizes the cache for maxCost bytes.
func DefaultConfig(maxCost int64) Config {
	return Config{
		NumCounters: maxCost / 100, // ~100B average value
		MaxCost:     maxCost,
		BufferItems: 64,
	}
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{c: c}, nil
}

func (p *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set admits value and waits for the write buffer so a following Get sees it.
func (p *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, int64(len(value)), ttl)
	p.c.Wait()
	return ok, nil
}

func (p *Ristretto) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// Expire re-admits the current value with the new ttl.
func (p *Ristretto) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	b, ok, _ := p.Get(ctx, key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		p.c.Del(key)
		return true, nil
	}
	return p.Set(ctx, key, b, ttl)
}

func (p *Ristretto) Traits() backend.Traits {
	return backend.Traits{Name: "ristretto", Durable: false, NativeTTL: true}
}

func (p *Ristretto) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters when Config.Metrics is set.
func (p *Ristretto) Metrics() *rc.Metrics { return p.c.Metrics }
