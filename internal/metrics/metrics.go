// Package metrics exposes Prometheus collectors for state transactions and
// the storage engines underneath them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzbill/stateflo/internal/state"
	boltstore "github.com/rzbill/stateflo/internal/storage/bolt"
	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
)

// Outcome label values of the transactions counter.
const (
	OutcomePrepared = "prepared"
	OutcomeFlushed  = "flushed"
	OutcomeFailed   = "failed"
)

// Metrics implements state.Observer and the storage MetricsHooks.
type Metrics struct {
	transactions     *prometheus.CounterVec
	failures         *prometheus.CounterVec
	changelogRecords prometheus.Counter
	flushedEntries   prometheus.Counter
	duration         *prometheus.HistogramVec

	readBytes      prometheus.Counter
	writeBytes     prometheus.Counter
	commitOps      prometheus.Counter
	commitBytes    prometheus.Counter
	storageLatency *prometheus.HistogramVec
}

var (
	_ state.Observer          = (*Metrics)(nil)
	_ pebblestore.MetricsHook = (*Metrics)(nil)
	_ boltstore.MetricsHook   = (*Metrics)(nil)
)

// New creates the collectors under namespace and registers them on reg.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "transactions_total",
			Help:      "Counter of state transactions by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "transaction_failures_total",
			Help:      "Counter of failed state transactions by failing operation.",
		}, []string{"op"}),
		changelogRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "changelog_records_total",
			Help:      "Changelog records produced on prepare.",
		}),
		flushedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "flushed_entries_total",
			Help:      "Updates written to partitions on flush.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "transaction_phase_duration_seconds",
			Help:      "Bucketed histogram of prepare and flush time (s).",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 13),
		}, []string{"phase"}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_bytes_total",
			Help:      "Bytes read by point lookups.",
		}),
		writeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_bytes_total",
			Help:      "Bytes written by single-key writes.",
		}),
		commitOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_ops_total",
			Help:      "Operations committed in batches.",
		}),
		commitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_bytes_total",
			Help:      "Bytes committed in batches.",
		}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_duration_seconds",
			Help:      "Bucketed histogram of storage operation time (s).",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{
		m.transactions, m.failures, m.changelogRecords, m.flushedEntries, m.duration,
		m.readBytes, m.writeBytes, m.commitOps, m.commitBytes, m.storageLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Prepared(records int, elapsed time.Duration) {
	m.transactions.WithLabelValues(OutcomePrepared).Inc()
	m.changelogRecords.Add(float64(records))
	m.duration.WithLabelValues("prepare").Observe(elapsed.Seconds())
}

func (m *Metrics) Flushed(entries int, elapsed time.Duration) {
	m.transactions.WithLabelValues(OutcomeFlushed).Inc()
	m.flushedEntries.Add(float64(entries))
	m.duration.WithLabelValues("flush").Observe(elapsed.Seconds())
}

func (m *Metrics) Failed(op string) {
	m.transactions.WithLabelValues(OutcomeFailed).Inc()
	m.failures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveWrite(elapsed time.Duration, bytes int) {
	m.writeBytes.Add(float64(bytes))
	m.storageLatency.WithLabelValues("write").Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.readBytes.Add(float64(bytes))
	m.storageLatency.WithLabelValues("read").Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	m.commitOps.Add(float64(numOps))
	m.commitBytes.Add(float64(bytes))
	m.storageLatency.WithLabelValues("commit").Observe(elapsed.Seconds())
}
