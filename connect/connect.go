// Package connect opens a backend from a connection URL.
//
//	mongodb://host:27017/db        durable, TTL index (also mongodb+srv://)
//	redis://host:6379/0            ephemeral, native expiry (also rediss://, unix://)
//	bolt:///var/lib/kv.db?bucket=kv&reap=1m
//	ristretto://?max_cost=67108864 (alias mem://)
//	bigcache://?life=10m&max_mb=256
package connect

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/backend"
	"github.com/unkn0wn-root/kvstore/backend/bigcache"
	"github.com/unkn0wn-root/kvstore/backend/bolt"
	"github.com/unkn0wn-root/kvstore/backend/mongo"
	"github.com/unkn0wn-root/kvstore/backend/redis"
	"github.com/unkn0wn-root/kvstore/backend/ristretto"
)

const (
	defaultPingTimeout = 5 * time.Second
	defaultMaxCost     = 64 << 20
	defaultLifeWindow  = 10 * time.Minute
)

type options struct {
	pingTimeout time.Duration
	database    string
	collection  string
}

type Option func(*options)

// WithPingTimeout bounds the reachability check done while opening.
func WithPingTimeout(d time.Duration) Option {
	return func(o *options) { o.pingTimeout = d }
}

// WithDatabase overrides the mongo database named in the URL.
func WithDatabase(name string) Option {
	return func(o *options) { o.database = name }
}

// WithCollection sets the mongo collection, "default" if unset.
func WithCollection(name string) Option {
	return func(o *options) { o.collection = name }
}

// Schemes lists the URL schemes Open understands.
var Schemes = []string{"mongodb", "mongodb+srv", "redis", "rediss", "unix", "bolt", "ristretto", "mem", "bigcache"}

// Open connects to the backend named by rawURL's scheme. Every failure is a
// *kvstore.Error of kind KindConnectionFailed.
func Open(ctx context.Context, rawURL string, opts ...Option) (backend.Backend, error) {
	o := options{pingTimeout: defaultPingTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, initErr(err)
	}

	var be backend.Backend
	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		be, err = mongo.Dial(ctx, mongo.Config{
			URI:         rawURL,
			Database:    o.database,
			Collection:  o.collection,
			PingTimeout: o.pingTimeout,
		})
	case "redis", "rediss", "unix":
		be, err = redis.Dial(ctx, rawURL, o.pingTimeout)
	case "bolt":
		be, err = openBolt(u)
	case "ristretto", "mem":
		be, err = openRistretto(u)
	case "bigcache":
		be, err = openBigCache(ctx, u)
	case "":
		err = fmt.Errorf("missing scheme in %q", rawURL)
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, initErr(err)
	}
	return be, nil
}

func initErr(err error) error {
	return &kvstore.Error{Kind: kvstore.KindConnectionFailed, Op: "init", Err: err}
}

func openBolt(u *url.URL) (*bolt.Bolt, error) {
	path := u.Opaque
	if path == "" {
		path = u.Host + u.Path
	}
	if path == "" {
		return nil, fmt.Errorf("bolt url needs a file path")
	}
	q := u.Query()
	reap, err := durationParam(q, "reap", 0)
	if err != nil {
		return nil, err
	}
	return bolt.Open(bolt.Config{Path: path, Bucket: q.Get("bucket"), ReapInterval: reap})
}

func openRistretto(u *url.URL) (*ristretto.Ristretto, error) {
	maxCost, err := intParam(u.Query(), "max_cost", defaultMaxCost)
	if err != nil {
		return nil, err
	}
	return ristretto.New(ristretto.DefaultConfig(int64(maxCost)))
}

func openBigCache(ctx context.Context, u *url.URL) (*bigcache.BigCache, error) {
	q := u.Query()
	life, err := durationParam(q, "life", defaultLifeWindow)
	if err != nil {
		return nil, err
	}
	maxMB, err := intParam(q, "max_mb", 0)
	if err != nil {
		return nil, err
	}
	return bigcache.New(ctx, bigcache.Config{LifeWindow: life, HardMaxCacheSizeMB: maxMB})
}

func durationParam(q url.Values, name string, def time.Duration) (time.Duration, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}
