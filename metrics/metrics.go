// Package metrics exposes tracking engine counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds engine metrics
type Metrics struct {
	// Frame processing counters
	FramesProcessed atomic.Uint64
	FramesCancelled atomic.Uint64

	// Track lifecycle counters
	TracksAdded      atomic.Uint64
	TracksLostFrames atomic.Uint64
	TracksTerminated atomic.Uint64
	TracksRemoved    atomic.Uint64
	InitFailures     atomic.Uint64

	// Current state
	ActiveTracks atomic.Uint64
	LostTracks   atomic.Uint64
	OpenEntries  atomic.Uint64

	// Visits closed, including flushed on termination
	VisitsEmitted atomic.Uint64

	// Duration of the last frame advance in microseconds
	FrameLatencyUs atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name  string
		help  string
		value *atomic.Uint64
	}{
		{"mot_zones_frames_processed_total", "Frames advanced through the engine", &m.FramesProcessed},
		{"mot_zones_frames_cancelled_total", "Frame advances refused because of cancelled context", &m.FramesCancelled},
		{"mot_zones_tracks_added_total", "Tracks started", &m.TracksAdded},
		{"mot_zones_track_lost_frames_total", "Failed per-track updates", &m.TracksLostFrames},
		{"mot_zones_tracks_terminated_total", "Tracks terminated after exceeding lost frames threshold", &m.TracksTerminated},
		{"mot_zones_tracks_removed_total", "Tracks removed manually", &m.TracksRemoved},
		{"mot_zones_track_init_failures_total", "Rejected track initializations", &m.InitFailures},
		{"mot_zones_visits_total", "Zone visits emitted", &m.VisitsEmitted},
	}
	for _, c := range counters {
		value := c.value
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: c.name,
				Help: c.help,
			},
			func() float64 { return float64(value.Load()) },
		))
	}

	// State gauges
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mot_zones_active_tracks",
			Help: "Tracks updated successfully on the last frame",
		},
		func() float64 { return float64(m.ActiveTracks.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mot_zones_lost_tracks",
			Help: "Tracks lost on the last frame but not terminated yet",
		},
		func() float64 { return float64(m.LostTracks.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mot_zones_open_entries",
			Help: "Zone entries not closed yet",
		},
		func() float64 { return float64(m.OpenEntries.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mot_zones_frame_latency_us",
			Help: "Duration of the last frame advance in microseconds",
		},
		func() float64 { return float64(m.FrameLatencyUs.Load()) },
	))
}

// UpdateFrameLatency stores duration of the last frame advance
func (m *Metrics) UpdateFrameLatency(duration time.Duration) {
	m.FrameLatencyUs.Store(uint64(duration.Microseconds()))
}

// SetTrackStates stores current number of active and lost tracks
func (m *Metrics) SetTrackStates(active, lost int) {
	m.ActiveTracks.Store(uint64(active))
	m.LostTracks.Store(uint64(lost))
}

// Registry returns underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
