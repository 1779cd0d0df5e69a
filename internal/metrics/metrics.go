// Package metrics defines the Prometheus collectors exported by the lobby server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "baduk"

// Lobby counts room and presence events. All methods are safe on a nil *Lobby, which lets services
// run without metrics in tests.
type Lobby struct {
	roomsCreated   prometheus.Counter
	roomsMatched   *prometheus.CounterVec
	joinConflicts  prometheus.Counter
	indexRepairs   prometheus.Counter
	heartbeatsLost prometheus.Counter
}

// NewLobby registers the lobby collectors with reg.
func NewLobby(reg prometheus.Registerer) *Lobby {
	f := promauto.With(reg)
	return &Lobby{
		roomsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "rooms_created_total",
			Help:      "Rooms opened, directly or as an auto-match fallback.",
		}),
		roomsMatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "rooms_matched_total",
			Help:      "Rooms that went from waiting to full.",
		}, []string{"via"}),
		joinConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "join_conflicts_total",
			Help:      "Joins rejected because another request changed the room first.",
		}),
		indexRepairs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "waiting_index_repairs_total",
			Help:      "Dangling ids removed from the waiting-room index.",
		}),
		heartbeatsLost: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "heartbeats_lost_total",
			Help:      "Heartbeats that could not be written to the store.",
		}),
	}
}

func (m *Lobby) RoomCreated() {
	if m != nil {
		m.roomsCreated.Inc()
	}
}

// RoomMatched records a waiting->full transition; via is "join" or "auto".
func (m *Lobby) RoomMatched(via string) {
	if m != nil {
		m.roomsMatched.WithLabelValues(via).Inc()
	}
}

func (m *Lobby) JoinConflict() {
	if m != nil {
		m.joinConflicts.Inc()
	}
}

func (m *Lobby) IndexRepaired(n int) {
	if m != nil && n > 0 {
		m.indexRepairs.Add(float64(n))
	}
}

func (m *Lobby) HeartbeatLost() {
	if m != nil {
		m.heartbeatsLost.Inc()
	}
}

// HTTP holds the per-request collectors used by the metrics middleware.
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewHTTP registers the HTTP collectors with reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
