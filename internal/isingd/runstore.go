package isingd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/ising-core/internal/metrics"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/internal/sweep"
	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

// RunRecord is a snapshot of one run
type RunRecord struct {
	Run    models.Run
	Config *config.Config
	// Traces keyed by temperature label (output.FileName without prefix)
	Traces map[string]*models.Trace
}

type runEntry struct {
	run       models.Run
	cfg       *config.Config
	traces    map[string]*models.Trace
	live      map[string]*models.Trace
	collector *metrics.Collector
}

// RunStore holds runs in memory
type RunStore struct {
	mu    sync.RWMutex
	runs  map[string]*runEntry
	order []string
}

// NewRunStore creates an empty store
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*runEntry),
	}
}

// TemperatureKey labels a temperature the way artifact names do
func TemperatureKey(t float64) string {
	return strings.TrimSuffix(output.FileName("", t), ".csv")
}

// Create registers a pending run. An empty runID gets a fresh UUID.
func (s *RunStore) Create(runID string, cfg *config.Config) (*RunRecord, error) {
	if strings.ContainsAny(runID, "/:?# ") {
		return nil, fmt.Errorf("run id cannot contain '/', ':', '?', '#' or spaces: %q", runID)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	ts, err := sweep.Temperatures(cfg.Sweep.Start, cfg.Sweep.End, cfg.Sweep.Step)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = uuid.NewString()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("run already exists: %s", runID)
	}

	e := &runEntry{
		run: models.Run{
			ID:           runID,
			Status:       models.RunStatusPending,
			CreatedAt:    time.Now().UTC(),
			Temperatures: ts,
		},
		cfg:    cfg,
		traces: make(map[string]*models.Trace),
		live:   make(map[string]*models.Trace),
	}
	s.runs[runID] = e
	s.order = append(s.order, runID)
	return e.snapshot(), nil
}

func (e *runEntry) snapshot() *RunRecord {
	traces := make(map[string]*models.Trace, len(e.traces))
	for k, v := range e.traces {
		traces[k] = v
	}
	run := e.run
	if e.run.Metrics != nil {
		m := *e.run.Metrics
		run.Metrics = &m
	}
	return &RunRecord{Run: run, Config: e.cfg, Traces: traces}
}

// Get returns a snapshot of a run
func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return e.snapshot(), true
}

// List returns runs in creation order, optionally filtered by status
func (s *RunStore) List(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*RunRecord, 0, minInt(limit, len(s.order)))
	skipped := 0
	for _, id := range s.order {
		e := s.runs[id]
		if status != "" && e.run.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, e.snapshot())
		if len(out) >= limit {
			break
		}
	}
	return out
}

// SetStatus transitions a run. Terminal runs cannot change status.
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if e.run.Status.IsTerminal() {
		return e.snapshot(), fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, e.run.Status)
	}

	e.run.Status = status
	if errMsg != "" {
		e.run.Error = errMsg
	}
	switch {
	case status == models.RunStatusRunning:
		if e.run.StartedAt.IsZero() {
			e.run.StartedAt = time.Now().UTC()
		}
	case status.IsTerminal():
		e.run.EndedAt = time.Now().UTC()
	}
	return e.snapshot(), nil
}

// CompleteTemperature stores the finished trace of one temperature and
// advances the run's progress
func (s *RunStore) CompleteTemperature(runID string, trace *models.Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	key := TemperatureKey(trace.Temperature)
	if _, exists := e.traces[key]; !exists {
		e.run.Completed++
	}
	e.traces[key] = trace
	delete(e.live, key)
	return nil
}

// AppendSample extends the in-progress trace of temperature t
func (s *RunStore) AppendSample(runID string, t float64, energy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	key := TemperatureKey(t)
	if _, done := e.traces[key]; done {
		return nil
	}
	tr, ok := e.live[key]
	if !ok {
		tr = models.NewTrace(t, nil)
		e.live[key] = tr
	}
	tr.Append(energy)
	return nil
}

// LiveTrace returns the in-progress trace of temperature t
func (s *RunStore) LiveTrace(runID string, t float64) (*models.Trace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	tr, ok := e.live[TemperatureKey(t)]
	return tr, ok
}

// Trace returns the stored trace for temperature t
func (s *RunStore) Trace(runID string, t float64) (*models.Trace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	tr, ok := e.traces[TemperatureKey(t)]
	return tr, ok
}

// TraceTemperatures lists temperatures with stored traces, ascending
func (s *RunStore) TraceTemperatures(runID string) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID]
	if !ok {
		return nil
	}
	ts := make([]float64, 0, len(e.traces))
	for _, tr := range e.traces {
		ts = append(ts, tr.Temperature)
	}
	sort.Float64s(ts)
	return ts
}

// SetMetrics stores the run's final telemetry
func (s *RunStore) SetMetrics(runID string, m *models.RunMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	e.run.Metrics = m
	return nil
}

// SetCollector attaches the live telemetry collector of a run
func (s *RunStore) SetCollector(runID string, c *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	e.collector = c
	return nil
}

// GetCollector returns the live telemetry collector of a run
func (s *RunStore) GetCollector(runID string) (*metrics.Collector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID]
	if !ok || e.collector == nil {
		return nil, false
	}
	return e.collector, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
