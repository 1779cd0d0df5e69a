package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLobbyCounters(t *testing.T) {
	m := NewLobby(prometheus.NewRegistry())

	m.RoomCreated()
	m.RoomCreated()
	m.RoomMatched("auto")
	m.JoinConflict()
	m.IndexRepaired(3)
	m.IndexRepaired(0)
	m.HeartbeatLost()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.roomsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roomsMatched.WithLabelValues("auto")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.roomsMatched.WithLabelValues("join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.joinConflicts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.indexRepairs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heartbeatsLost))
}

func TestNilLobbyIsNoop(t *testing.T) {
	var m *Lobby
	assert.NotPanics(t, func() {
		m.RoomCreated()
		m.RoomMatched("join")
		m.JoinConflict()
		m.IndexRepaired(1)
		m.HeartbeatLost()
	})
}
