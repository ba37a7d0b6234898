// Package metrics is the Go-native evolution of the original system's
// mec_metrics.h performance counters (frame_count, latency, fps), exposed
// as Prometheus collectors rather than a periodically logged struct.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements fusion.Recorder and exposes the underlying
// prometheus collectors for registration.
type Recorder struct {
	cyclesTotal    prometheus.Counter
	tracksGauge    prometheus.Gauge
	evictedTotal   prometheus.Counter
	ingestTotal    *prometheus.CounterVec
	queueDepth     prometheus.Gauge
	cycleLatency   prometheus.Histogram
	lastCycleStart time.Time
}

// New constructs a Recorder. Call MustRegister(reg) before use in a scrape
// handler, or pass prometheus.DefaultRegisterer.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mec",
			Subsystem: "fusion",
			Name:      "cycles_total",
			Help:      "Number of periodic fusion cycles executed.",
		}),
		tracksGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mec",
			Subsystem: "fusion",
			Name:      "live_tracks",
			Help:      "Number of live fused tracks after the last cycle.",
		}),
		evictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mec",
			Subsystem: "fusion",
			Name:      "evicted_tracks_total",
			Help:      "Number of fused tracks evicted across all cycles.",
		}),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mec",
			Subsystem: "fusion",
			Name:      "ingested_detections_total",
			Help:      "Detections ingested, partitioned by sensor and association outcome.",
		}, []string{"sensor_id", "associated"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mec",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current message queue occupancy.",
		}),
		cycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mec",
			Subsystem: "fusion",
			Name:      "cycle_seconds",
			Help:      "Wall-clock interval between consecutive periodic fusion cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// MustRegister registers every collector on reg.
func (r *Recorder) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(r.cyclesTotal, r.tracksGauge, r.evictedTotal, r.ingestTotal, r.queueDepth, r.cycleLatency)
}

// ObserveCycle implements fusion.Recorder.
func (r *Recorder) ObserveCycle(trackCount int, evicted int) {
	r.cyclesTotal.Inc()
	r.tracksGauge.Set(float64(trackCount))
	if evicted > 0 {
		r.evictedTotal.Add(float64(evicted))
	}
	if !r.lastCycleStart.IsZero() {
		r.cycleLatency.Observe(time.Since(r.lastCycleStart).Seconds())
	}
	r.lastCycleStart = time.Now()
}

// ObserveIngest implements fusion.Recorder.
func (r *Recorder) ObserveIngest(sensorID int, associated bool) {
	label := "false"
	if associated {
		label = "true"
	}
	r.ingestTotal.WithLabelValues(strconv.Itoa(sensorID), label).Inc()
}

// SetQueueDepth records the current queue.Size() value; callers sample it
// periodically since Prometheus gauges are pull-based snapshots.
func (r *Recorder) SetQueueDepth(depth int) {
	r.queueDepth.Set(float64(depth))
}
