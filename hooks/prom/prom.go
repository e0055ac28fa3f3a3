// Package prom counts store events as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/kvstore"
)

// Hooks implements kvstore.Hooks with counters and a collection-size
// histogram. Keys are never used as label values.
type Hooks struct {
	writeDropped  prometheus.Counter
	decodeFailed  *prometheus.CounterVec
	backendFailed *prometheus.CounterVec
	appendSize    prometheus.Histogram
}

var _ kvstore.Hooks = (*Hooks)(nil)

// New registers the metrics on reg under the given namespace.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	h := &Hooks{
		writeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_dropped_total",
			Help:      "Writes declined by the backend under pressure.",
		}),
		decodeFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failed_total",
			Help:      "Stored payloads that could not be decoded.",
		}, []string{"reason"}),
		backendFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_failed_total",
			Help:      "Backend calls that returned an error.",
		}, []string{"op"}),
		appendSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "append_collection_size",
			Help:      "Items in a collection after an append.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{h.writeDropped, h.decodeFailed, h.backendFailed, h.appendSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) WriteDropped(string) { h.writeDropped.Inc() }

func (h *Hooks) DecodeFailed(_, reason string, _ error) {
	h.decodeFailed.WithLabelValues(reason).Inc()
}

func (h *Hooks) BackendFailed(op, _ string, _ error) {
	h.backendFailed.WithLabelValues(op).Inc()
}

func (h *Hooks) Appended(_ string, n int) { h.appendSize.Observe(float64(n)) }
