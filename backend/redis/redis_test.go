package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	be, err := Dial(context.Background(), "redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = be.Close(context.Background()) })
	return mr, be
}

func TestRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return a miss for an unknown key", func(t *testing.T) {
		_, be := setup(t)
		b, ok, err := be.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, b)
	})

	t.Run("Should store bytes unchanged", func(t *testing.T) {
		_, be := setup(t)
		ok, err := be.Set(ctx, "k", []byte{0, 1, 2}, 0)
		require.NoError(t, err)
		require.True(t, ok)
		b, ok, err := be.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{0, 1, 2}, b)
	})

	t.Run("Should set value and ttl in a single command", func(t *testing.T) {
		mr, be := setup(t)
		_, err := be.Set(ctx, "k", []byte("v"), 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, mr.TTL("k"))

		mr.FastForward(11 * time.Second)
		_, ok, err := be.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should clear an earlier ttl on a plain set", func(t *testing.T) {
		mr, be := setup(t)
		_, err := be.Set(ctx, "k", []byte("v"), 10*time.Second)
		require.NoError(t, err)
		_, err = be.Set(ctx, "k", []byte("w"), 0)
		require.NoError(t, err)
		assert.Zero(t, mr.TTL("k"))
	})

	t.Run("Should treat deleting a missing key as success", func(t *testing.T) {
		_, be := setup(t)
		assert.NoError(t, be.Del(ctx, "nope"))
	})

	t.Run("Should refresh expiry on an existing key", func(t *testing.T) {
		mr, be := setup(t)
		_, err := be.Set(ctx, "k", []byte("v"), 0)
		require.NoError(t, err)

		found, err := be.Expire(ctx, "k", 5*time.Second)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 5*time.Second, mr.TTL("k"))

		found, err = be.Expire(ctx, "nope", 5*time.Second)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Should remove the key when expire gets a non-positive ttl", func(t *testing.T) {
		mr, be := setup(t)
		_, err := be.Set(ctx, "k", []byte("v"), 0)
		require.NoError(t, err)
		found, err := be.Expire(ctx, "k", 0)
		require.NoError(t, err)
		assert.True(t, found)
		assert.False(t, mr.Exists("k"))
	})

	t.Run("Should surface server errors", func(t *testing.T) {
		mr, be := setup(t)
		mr.SetError("LOADING")
		_, _, err := be.Get(ctx, "k")
		assert.Error(t, err)
		_, err = be.Set(ctx, "k", []byte("v"), 0)
		assert.Error(t, err)
	})

	t.Run("Should report cache traits", func(t *testing.T) {
		_, be := setup(t)
		tr := be.Traits()
		assert.Equal(t, "redis", tr.Name)
		assert.False(t, tr.Durable)
		assert.True(t, tr.NativeTTL)
	})
}

func TestDial(t *testing.T) {
	t.Run("Should reject a malformed url", func(t *testing.T) {
		_, err := Dial(context.Background(), "http://nope", time.Second)
		assert.Error(t, err)
	})

	t.Run("Should fail when the server is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := Dial(context.Background(), "redis://"+addr, 200*time.Millisecond)
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNilClient)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	be, err := New(Config{Client: client})
	require.NoError(t, err)
	require.NoError(t, be.Close(context.Background()))
	// not owned: client stays usable
	assert.NoError(t, client.Ping(context.Background()).Err())
	_ = client.Close()
}
