// Package telemetry exposes world runtime signals as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scrounge"

// Metrics implements world.Metrics on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	tickSeconds    prometheus.Histogram
	ticksSkipped   prometheus.Counter
	liveBodies     *prometheus.GaugeVec
	faucetEmits    *prometheus.CounterVec
	collected      *prometheus.CounterVec
	generation     prometheus.Gauge
	indexDropTotal prometheus.GaugeFunc
}

type Options struct {
	// IndexDrops reports events dropped by the SQLite indexer. Optional.
	IndexDrops func() uint64
	// Process adds the Go runtime and process collectors.
	Process    bool
}

func New(opts Options) *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}
	m.tickSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Wall time spent in one world tick.",
		Buckets:   []float64{.0005, .001, .002, .004, .008, .016, .033, .066},
	})
	m.ticksSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_skipped_total",
		Help:      "Ticks skipped while a scene transition was mounting.",
	})
	m.liveBodies = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_bodies",
		Help:      "Mounted rigid bodies per pool.",
	}, []string{"pool"})
	m.faucetEmits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faucet_teleports_total",
		Help:      "Instances recycled by a faucet.",
	}, []string{"faucet"})
	m.collected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collected_total",
		Help:      "Collection sequences started per pool.",
	}, []string{"pool"})
	m.generation = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "generation",
		Help:      "Current mount generation.",
	})
	m.reg.MustRegister(m.tickSeconds, m.ticksSkipped, m.liveBodies, m.faucetEmits, m.collected, m.generation)
	if opts.IndexDrops != nil {
		drops := opts.IndexDrops
		m.indexDropTotal = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_dropped_events",
			Help:      "Events the SQLite index dropped because its queue was full.",
		}, func() float64 { return float64(drops()) })
		m.reg.MustRegister(m.indexDropTotal)
	}
	if opts.Process {
		m.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

func (m *Metrics) ObserveTick(d time.Duration)        { m.tickSeconds.Observe(d.Seconds()) }
func (m *Metrics) TickSkipped()                       { m.ticksSkipped.Inc() }
func (m *Metrics) SetLiveBodies(poolID string, n int) { m.liveBodies.WithLabelValues(poolID).Set(float64(n)) }
func (m *Metrics) FaucetTeleport(faucetID string)     { m.faucetEmits.WithLabelValues(faucetID).Inc() }
func (m *Metrics) Collected(poolID string)            { m.collected.WithLabelValues(poolID).Inc() }
func (m *Metrics) SetGeneration(gen uint64)           { m.generation.Set(float64(gen)) }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
