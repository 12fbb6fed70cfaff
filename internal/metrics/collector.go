// Package metrics exposes the engine's apply-path observability as
// Prometheus metrics. Nothing in this package ever participates in the
// apply path's determinism guarantee: the Engine only writes into the
// Collector (journal write latency once the write returns, sequence number
// and trade count once the command is applied) and never reads a value back.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the engine's Prometheus instruments.
type Collector struct {
	SequenceNumber     prometheus.Gauge
	TradesTotal        prometheus.Counter
	JournalWriteSeconds prometheus.Histogram
	QueueDepth         prometheus.Gauge
}

var (
	collector     *Collector
	collectorOnce sync.Once
)

// GetCollector returns the process-wide singleton Collector, registering its
// instruments with the default Prometheus registry on first use.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{
		SequenceNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bastion",
			Name:      "sequence_number",
			Help:      "Last sequence number applied by the engine.",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bastion",
			Name:      "trades_total",
			Help:      "Total trades produced by the matching engine.",
		}),
		JournalWriteSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bastion",
			Name:      "journal_write_seconds",
			Help:      "Time spent in one journal write, including fsync.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bastion",
			Name:      "queue_depth",
			Help:      "Number of commands waiting in the engine's inbound queue.",
		}),
	}

	prometheus.MustRegister(c.SequenceNumber, c.TradesTotal, c.JournalWriteSeconds, c.QueueDepth)
	return c
}

// RecordApply updates sequence number and trade count after one applied
// command. tradeCount is 0 for anything other than a filled CreateOrder.
func (c *Collector) RecordApply(sequence uint64, tradeCount int) {
	c.SequenceNumber.Set(float64(sequence))
	if tradeCount > 0 {
		c.TradesTotal.Add(float64(tradeCount))
	}
}

// Handler returns the HTTP handler the bootstrap binds /metrics to.
func Handler() http.Handler {
	return promhttp.Handler()
}
