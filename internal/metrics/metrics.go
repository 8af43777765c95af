package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds process counters for the shuffle loop
type Metrics struct {
	startTime time.Time

	picksTotal      uint64
	enqueuedTotal   uint64
	iterationsTotal uint64
	wakeupsTotal    uint64
}

// Global metrics instance
var global = &Metrics{
	startTime: time.Now(),
}

// Get returns the global metrics instance
func Get() *Metrics {
	return global
}

// RecordPick records a track drawn from the shuffle chain
func (m *Metrics) RecordPick() {
	atomic.AddUint64(&m.picksTotal, 1)
}

// RecordEnqueue records a track pushed onto the server queue
func (m *Metrics) RecordEnqueue() {
	atomic.AddUint64(&m.enqueuedTotal, 1)
}

// RecordIteration records one completed loop iteration
func (m *Metrics) RecordIteration() {
	atomic.AddUint64(&m.iterationsTotal, 1)
}

// RecordWakeup records an idle notification from the server
func (m *Metrics) RecordWakeup() {
	atomic.AddUint64(&m.wakeupsTotal, 1)
}

// Snapshot returns current counters as a map
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"uptime_seconds":   time.Since(m.startTime).Seconds(),
		"picks_total":      atomic.LoadUint64(&m.picksTotal),
		"enqueued_total":   atomic.LoadUint64(&m.enqueuedTotal),
		"iterations_total": atomic.LoadUint64(&m.iterationsTotal),
		"wakeups_total":    atomic.LoadUint64(&m.wakeupsTotal),
	}
}
