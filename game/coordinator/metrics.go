package coordinator

import (
	"sync/atomic"
	"time"
)

// Metrics records coordinator activity. Counters are written by the
// coordinator goroutine and by sessions, and read by the stats endpoint.
type Metrics struct {
	Ticks       atomic.Int64
	TotalTickNs atomic.Int64
	Connects    atomic.Int64
	Disconnects atomic.Int64
	// DisconnectRequests counts every Disconnect processed, including
	// repeats and unknown ids
	DisconnectRequests atomic.Int64
	Spectators         atomic.Int64 // currently registered
	ActionsApplied     atomic.Int64
	StaleActions       atomic.Int64
	Deaths             atomic.Int64
	Broadcasts         atomic.Int64
	DroppedDeliveries  atomic.Int64
	MalformedFrames    atomic.Int64
}

// IncMalformed counts an inbound frame that failed to decode
func (m *Metrics) IncMalformed() { m.MalformedFrames.Add(1) }

func (m *Metrics) addTick(d time.Duration) {
	m.Ticks.Add(1)
	m.TotalTickNs.Add(d.Nanoseconds())
}

// Snapshot returns a read-only copy suitable for JSON output
func (m *Metrics) Snapshot() map[string]any {
	ticks := m.Ticks.Load()
	total := m.TotalTickNs.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":          ticks,
		"avg_tick_ms":         avgMs,
		"connects":            m.Connects.Load(),
		"disconnects":         m.Disconnects.Load(),
		"disconnect_requests": m.DisconnectRequests.Load(),
		"spectators":          m.Spectators.Load(),
		"actions_applied":     m.ActionsApplied.Load(),
		"stale_actions":       m.StaleActions.Load(),
		"deaths":              m.Deaths.Load(),
		"broadcasts":          m.Broadcasts.Load(),
		"dropped_deliveries":  m.DroppedDeliveries.Load(),
		"malformed_frames":    m.MalformedFrames.Load(),
	}
}
