// Package bolt is a local durable backend on a bbolt file.
//
// Record layout: 8 bytes big-endian expiresAt (unix nanos, 0 = never) || value.
// Expired records are filtered on read and removed by a background reaper.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/kvstore/backend"
)

const (
	DefaultBucket       = "kv"
	DefaultReapInterval = time.Minute

	headerLen = 8
)

var ErrCorruptRecord = errors.New("bolt backend: record shorter than header")

type Config struct {
	Path   string
	Bucket string // default "kv"
	// ReapInterval is how often expired records are deleted.
	// 0 => DefaultReapInterval, < 0 => no background reaper.
	ReapInterval time.Duration
}

type Bolt struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ backend.Backend = (*Bolt)(nil)

func Open(cfg Config) (*Bolt, error) {
	if cfg.Path == "" {
		return nil, errors.New("bolt backend: path is required")
	}
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	bucket := []byte(DefaultBucket)
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Bolt{db: db, bucket: bucket, now: time.Now}

	interval := cfg.ReapInterval
	if interval == 0 {
		interval = DefaultReapInterval
	}
	if interval > 0 {
		s.ticker = time.NewTicker(interval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					_, _ = s.Reap()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s, nil
}

func (s *Bolt) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) < headerLen {
			return ErrCorruptRecord
		}
		if s.expired(v) {
			return nil
		}
		// v is only valid inside the transaction
		out = append([]byte{}, v[headerLen:]...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (s *Bolt) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf[:headerLen], uint64(expiresAt))
	copy(buf[headerLen:], value)

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Bolt) Del(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Reap deletes every expired record and returns how many were removed.
func (s *Bolt) Reap() (int, error) {
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var dead [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(v) >= headerLen && s.expired(v) {
				dead = append(dead, append([]byte{}, k...))
			}
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(dead)
		return nil
	})
	return n, err
}

func (s *Bolt) Traits() backend.Traits {
	return backend.Traits{Name: "bolt", Durable: true, NativeTTL: false}
}

// Close stops the reaper and closes the file. Safe to call multiple times.
func (s *Bolt) Close(context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
		err = s.db.Close()
	})
	return err
}

func (s *Bolt) expired(record []byte) bool {
	at := int64(binary.BigEndian.Uint64(record[:headerLen]))
	return at > 0 && s.now().UnixNano() >= at
}
