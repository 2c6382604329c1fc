package observability

import (
	"sync"
	"time"
)

// Metrics keeps in-process request counters. There is no external sink; a
// snapshot is exposed on the health surface for quick inspection.
type Metrics struct {
	mu            sync.Mutex
	started       time.Time
	requests      int64
	totalDuration time.Duration
	statusCounts  map[int]int64
	errorCodes    map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		started:      time.Now(),
		statusCounts: make(map[int]int64),
		errorCodes:   make(map[string]int64),
	}
}

// RecordRequest counts one completed request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	m.totalDuration += duration
	m.statusCounts[status]++
}

// RecordError counts one failed request by error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCodes[code]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Requests      int64            `json:"requests"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
	StatusCounts  map[int]int64    `json:"status_counts"`
	ErrorCodes    map[string]int64 `json:"error_codes,omitempty"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make(map[int]int64, len(m.statusCounts))
	for status, count := range m.statusCounts {
		statuses[status] = count
	}
	codes := make(map[string]int64, len(m.errorCodes))
	for code, count := range m.errorCodes {
		codes[code] = count
	}

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Requests:      m.requests,
		StatusCounts:  statuses,
		ErrorCodes:    codes,
	}
	if m.requests > 0 {
		snap.AvgLatencyMs = float64(m.totalDuration.Milliseconds()) / float64(m.requests)
	}
	return snap
}
