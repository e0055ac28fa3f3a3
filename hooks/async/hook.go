// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DecodeFailedEvery: 10, // sample logs: ~every 10th decode failure
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := kvstore.NewLog[codec.Record](kvstore.Options[codec.Record]{
//	    Namespace: "session",
//	    Backend:   be,
//	    Codec:     codec.JSON[codec.Record]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/kvstore"
)

// Hooks moves every event onto a bounded queue served by background workers.
// Events are dropped when the queue is full.
type Hooks struct {
	inner kvstore.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ kvstore.Hooks = (*Hooks)(nil)

func New(inner kvstore.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. No event may be sent
// after Close.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) WriteDropped(k string)    { h.try(func() { h.inner.WriteDropped(k) }) }
func (h *Hooks) Appended(k string, n int) { h.try(func() { h.inner.Appended(k, n) }) }
func (h *Hooks) DecodeFailed(k, reason string, err error) {
	h.try(func() { h.inner.DecodeFailed(k, reason, err) })
}
func (h *Hooks) BackendFailed(op, k string, err error) {
	h.try(func() { h.inner.BackendFailed(op, k, err) })
}
