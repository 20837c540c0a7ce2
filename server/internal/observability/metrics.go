package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates counters per engine operation. It is process-local; the
// health endpoint exposes a snapshot.
type Metrics struct {
	mu         sync.Mutex
	operations map[string]*operationMetrics

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
}

type operationMetrics struct {
	count         atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

func NewMetrics() *Metrics {
	return &Metrics{operations: make(map[string]*operationMetrics)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordOperation records one completed operation.
func (m *Metrics) RecordOperation(operation string, duration time.Duration, ok bool) {
	m.requestTotal.Add(1)
	om := m.get(operation)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if !ok {
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}
}

func (m *Metrics) get(operation string) *operationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	om, ok := m.operations[operation]
	if !ok {
		om = &operationMetrics{}
		m.operations[operation] = om
	}
	return om
}

// OperationSnapshot is a point-in-time view of one operation's counters.
type OperationSnapshot struct {
	Count     int64 `json:"count"`
	Errors    int64 `json:"errors"`
	AvgMillis int64 `json:"avg_ms"`
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]OperationSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.count.Load()
		snap := OperationSnapshot{Count: count, Errors: om.errorCount.Load()}
		if count > 0 {
			snap.AvgMillis = om.totalDuration.Load() / count
		}
		out[name] = snap
	}
	return out
}

// Totals returns the request and failure counts.
func (m *Metrics) Totals() (total, failed int64) {
	return m.requestTotal.Load(), m.requestFailed.Load()
}
