package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeys(t *testing.T) {
	var buf bytes.Buffer
	h := New(newLogger(&buf), Options{})
	h.BackendFailed("get", "session:42", errors.New("timeout"))

	out := buf.String()
	assert.Contains(t, out, "kvstore.backend_failed")
	assert.Contains(t, out, "op=get")
	assert.NotContains(t, out, "session:42")
}

func TestCustomRedactor(t *testing.T) {
	var buf bytes.Buffer
	h := New(newLogger(&buf), Options{Redact: func(k string) string { return k }})
	h.WriteDropped("session:42")
	assert.Contains(t, buf.String(), "session:42")
}

func TestSampling(t *testing.T) {
	var buf bytes.Buffer
	h := New(newLogger(&buf), Options{DecodeFailedEvery: 5})
	for i := 0; i < 10; i++ {
		h.DecodeFailed("k", "codec", errors.New("bad"))
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "kvstore.decode_failed"))
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	assert.NotPanics(t, func() {
		h.WriteDropped("k")
		h.DecodeFailed("k", "frame", nil)
		h.BackendFailed("set", "k", nil)
		h.Appended("k", 1)
	})
}
