package models

import (
	"strings"
	"sync"
	"time"
)

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// ParseRunStatus parses a status name case-insensitively; unknown names return ""
func ParseRunStatus(s string) RunStatus {
	switch RunStatus(strings.ToLower(strings.TrimSpace(s))) {
	case RunStatusPending:
		return RunStatusPending
	case RunStatusRunning:
		return RunStatusRunning
	case RunStatusCompleted:
		return RunStatusCompleted
	case RunStatusFailed:
		return RunStatusFailed
	case RunStatusCancelled:
		return RunStatusCancelled
	}
	return ""
}

// Run represents a sweep submitted to the daemon
type Run struct {
	ID           string      `json:"id"`
	Status       RunStatus   `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    time.Time   `json:"started_at,omitempty"`
	EndedAt      time.Time   `json:"ended_at,omitempty"`
	Temperatures []float64   `json:"temperatures"`
	Completed    int         `json:"completed"`
	Error        string      `json:"error,omitempty"`
	Metrics      *RunMetrics `json:"metrics,omitempty"`
}

// RunMetrics contains aggregated telemetry for a run
type RunMetrics struct {
	AttemptedFlips  uint64  `json:"attempted_flips"`
	AcceptedFlips   uint64  `json:"accepted_flips"`
	TraceSamples    int64   `json:"trace_samples"`
	AcceptanceRatio float64 `json:"acceptance_ratio"`
	DurationMs      float64 `json:"duration_ms"`
}

// Trace is the energy trace produced at one temperature
type Trace struct {
	Temperature float64 `json:"temperature"`
	FileName    string  `json:"file_name,omitempty"`
	Attempted   uint64  `json:"attempted"`
	Accepted    uint64  `json:"accepted"`

	mu       sync.RWMutex
	energies []int64
}

// NewTrace wraps energies recorded at temperature t
func NewTrace(t float64, energies []int64) *Trace {
	return &Trace{Temperature: t, energies: energies}
}

// Append adds a sample; safe for concurrent readers
func (t *Trace) Append(e int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.energies = append(t.energies, e)
}

// Energies returns a copy of the recorded samples
func (t *Trace) Energies() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int64, len(t.energies))
	copy(out, t.energies)
	return out
}

// Len returns the number of samples
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.energies)
}

// MetricPoint represents a single telemetry value
type MetricPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Aggregation contains aggregated statistics for a telemetry metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Last  float64 `json:"last"`
}
