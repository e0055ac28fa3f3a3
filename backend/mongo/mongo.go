// Package mongo is the durable backend: one document per key in a MongoDB
// collection, expired by a TTL index.
//
// Document shape:
//
//	{_id: <key>, value: <embedded doc | binary>, expiry: <date>, updated_at: <date>}
//
// value is kept as an embedded document when the payload is itself valid BSON
// (codec.BSON), which keeps entries readable from the mongo shell. Anything else
// is stored as generic binary. expiry is only present when a TTL was given.
//
// The server removes expired documents on its own schedule (about once a
// minute), so Get filters on expiry as well.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/unkn0wn-root/kvstore/backend"
)

const (
	DefaultDatabase   = "default"
	DefaultCollection = "default"
	TTLIndexName      = "expiry_ttl"

	fieldValue     = "value"
	fieldExpiry    = "expiry"
	fieldUpdatedAt = "updated_at"
)

var ErrUnexpectedValue = errors.New("mongo backend: unexpected value type")

type Config struct {
	URI string
	// Database falls back to the database named in URI, then DefaultDatabase.
	Database    string
	Collection  string
	PingTimeout time.Duration
}

type Mongo struct {
	coll   collection
	client *mongo.Client // nil when not owned
	now    func() time.Time
}

var _ backend.Backend = (*Mongo)(nil)

// Dial connects to the deployment, pings the primary and ensures the TTL index
// on expiry exists. The returned backend owns the client.
func Dial(ctx context.Context, cfg Config) (*Mongo, error) {
	db := cfg.Database
	if db == "" {
		cs, err := connstring.ParseAndValidate(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("invalid mongo uri: %w", err)
		}
		db = cs.Database
	}
	if db == "" {
		db = DefaultDatabase
	}
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pctx := ctx
	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := &Mongo{
		coll:   mongoCollection{c: client.Database(db).Collection(name)},
		client: client,
		now:    time.Now,
	}
	if err := m.coll.ensureTTLIndex(pctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create ttl index: %w", err)
	}
	return m, nil
}

// New wraps an existing collection. The caller keeps ownership of its client;
// the TTL index is created here.
func New(ctx context.Context, c *mongo.Collection) (*Mongo, error) {
	if c == nil {
		return nil, errors.New("mongo backend: nil collection")
	}
	m := &Mongo{coll: mongoCollection{c: c}, now: time.Now}
	if err := m.coll.ensureTTLIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to create ttl index: %w", err)
	}
	return m, nil
}

func (m *Mongo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	doc, err := m.coll.findOne(ctx, key)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if exp, err := doc.LookupErr(fieldExpiry); err == nil {
		if t, ok := exp.TimeOK(); ok && !t.After(m.now()) {
			return nil, false, nil // expired, awaiting the TTL monitor
		}
	}

	v, err := doc.LookupErr(fieldValue)
	if err != nil {
		return nil, false, fmt.Errorf("%w: missing %s", ErrUnexpectedValue, fieldValue)
	}
	switch v.Type {
	case bson.TypeEmbeddedDocument:
		out := make([]byte, len(v.Value))
		copy(out, v.Value)
		return out, true, nil
	case bson.TypeBinary:
		_, data := v.Binary()
		out := make([]byte, len(data))
		copy(out, data)
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnexpectedValue, v.Type)
	}
}

// Set replaces the whole document, so a write without ttl drops any earlier
// expiry.
func (m *Mongo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := m.now()
	doc := bson.D{
		{Key: "_id", Value: key},
		{Key: fieldValue, Value: encodeValue(value)},
		{Key: fieldUpdatedAt, Value: now},
	}
	if ttl > 0 {
		doc = append(doc, bson.E{Key: fieldExpiry, Value: now.Add(ttl)})
	}
	if err := m.coll.upsert(ctx, key, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Mongo) Del(ctx context.Context, key string) error {
	return m.coll.deleteOne(ctx, key)
}

func (m *Mongo) Traits() backend.Traits {
	return backend.Traits{Name: "mongo", Durable: true, NativeTTL: false}
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}

func encodeValue(b []byte) any {
	if bson.Raw(b).Validate() == nil {
		return bson.Raw(b)
	}
	return primitive.Binary{Subtype: bson.TypeBinaryGeneric, Data: b}
}

// collection is the slice of the driver the backend needs.
type collection interface {
	findOne(ctx context.Context, id string) (bson.Raw, error)
	upsert(ctx context.Context, id string, doc bson.D) error
	deleteOne(ctx context.Context, id string) error
	ensureTTLIndex(ctx context.Context) error
}

type mongoCollection struct {
	c *mongo.Collection
}

func (m mongoCollection) findOne(ctx context.Context, id string) (bson.Raw, error) {
	return m.c.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Raw()
}

func (m mongoCollection) upsert(ctx context.Context, id string, doc bson.D) error {
	_, err := m.c.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m mongoCollection) deleteOne(ctx context.Context, id string) error {
	_, err := m.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

func (m mongoCollection) ensureTTLIndex(ctx context.Context) error {
	_, err := m.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldExpiry, Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName(TTLIndexName),
	})
	return err
}
