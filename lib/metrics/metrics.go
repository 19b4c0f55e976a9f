// Package metrics provides Prometheus metrics for the storage node.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the Prometheus registry used by the node process.
var Registry = NewRegistry()

// NewRegistry returns a registry preloaded with the standard Go and process
// collectors. Tests create their own so repeated node construction does not
// trip duplicate registration.
func NewRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewGoCollector())
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return r
}

// NodeMetrics holds all Prometheus metrics for a storage node.
type NodeMetrics struct {
	ChunksStored      prometheus.Counter
	BytesStored       prometheus.Counter
	ChunksServed      prometheus.Counter
	BytesServed       prometheus.Counter
	ChecksumFailures  prometheus.Counter
	HeartbeatFailures prometheus.Counter

	UsedBytes prometheus.Gauge
}

// New registers and returns node metrics with the node id as a constant label.
func New(reg prometheus.Registerer, nodeID string) *NodeMetrics {
	constLabels := prometheus.Labels{
		"node": nodeID,
	}

	return &NodeMetrics{
		ChunksStored: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "pjas_chunks_stored_total",
			Help:        "Total chunks written to disk",
			ConstLabels: constLabels,
		}),
		BytesStored: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "pjas_bytes_stored_total",
			Help:        "Total payload bytes written to disk",
			ConstLabels: constLabels,
		}),
		ChunksServed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "pjas_chunks_served_total",
			Help:        "Total chunks served to callers",
			ConstLabels: constLabels,
		}),
		BytesServed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "pjas_bytes_served_total",
			Help:        "Total payload bytes served to callers",
			ConstLabels: constLabels,
		}),
		ChecksumFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "pjas_checksum_failures_total",
			Help:        "Reads rejected because the on-disk bytes no longer match the recorded digest",
			ConstLabels: constLabels,
		}),
		HeartbeatFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "pjas_heartbeat_failures_total",
			Help:        "Heartbeats the coordinator did not accept",
			ConstLabels: constLabels,
		}),
		UsedBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "pjas_storage_used_bytes",
			Help:        "Bytes currently used by chunk files",
			ConstLabels: constLabels,
		}),
	}
}
