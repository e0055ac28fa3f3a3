package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvstore"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DecodeFailedEvery uint64
	AppendedEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	decodeCtr atomic.Uint64
	appendCtr atomic.Uint64
}

var _ kvstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) WriteDropped(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvstore.write_dropped",
		"key", h.redact(storageKey))
}

func (h *Hooks) DecodeFailed(storageKey, reason string, err error) {
	if h.l == nil || !sample(h.opts.DecodeFailedEvery, &h.decodeCtr) {
		return
	}
	h.l.Warn("kvstore.decode_failed",
		"key", h.redact(storageKey),
		"reason", reason,
		"err", err)
}

func (h *Hooks) BackendFailed(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("kvstore.backend_failed",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) Appended(storageKey string, n int) {
	if h.l == nil || !sample(h.opts.AppendedEvery, &h.appendCtr) {
		return
	}
	h.l.Debug("kvstore.appended",
		"key", h.redact(storageKey),
		"items", n)
}
