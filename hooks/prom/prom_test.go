package prom

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg, "kvstore")
	require.NoError(t, err)

	h.WriteDropped("k")
	h.BackendFailed("get", "k", errors.New("x"))
	h.BackendFailed("get", "k", errors.New("x"))
	h.BackendFailed("set", "k", errors.New("x"))
	h.DecodeFailed("k", "frame", errors.New("x"))
	h.Appended("k", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.writeDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.backendFailed.WithLabelValues("get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.backendFailed.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.decodeFailed.WithLabelValues("frame")))
	assert.Equal(t, 1, testutil.CollectAndCount(h.appendSize))

	t.Run("Should refuse double registration", func(t *testing.T) {
		_, err := New(reg, "kvstore")
		assert.Error(t, err)
	})
}
