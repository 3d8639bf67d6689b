package isingd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/GoSim-25-26J-441/ising-core/internal/ising"
	"github.com/GoSim-25-26J-441/ising-core/internal/metrics"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/internal/sweep"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store        *RunStore
	hub          *Hub
	archive      *Archive
	artifactsDir string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewRunExecutor(store *RunStore) *RunExecutor {
	return &RunExecutor{
		store:   store,
		hub:     NewHub(),
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetArchive enables persisting finished traces
func (e *RunExecutor) SetArchive(a *Archive) {
	e.archive = a
}

// SetArtifactsDir makes every run also write CSV traces to dir/<run id>/
func (e *RunExecutor) SetArtifactsDir(dir string) {
	e.artifactsDir = dir
}

// Archive returns the trace archive, nil when disabled
func (e *RunExecutor) Archive() *Archive {
	return e.archive
}

// Hub returns the live event hub
func (e *RunExecutor) Hub() *Hub {
	return e.hub
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case rec.Run.Status == models.RunStatusRunning:
		return rec, nil
	case rec.Run.Status.IsTerminal():
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.publishStatus(updated)

	e.wg.Add(1)
	go e.runSweep(ctx, runID)
	return updated, nil
}

// Stop requests cancellation for a run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	e.publishStatus(updated)
	return updated, nil
}

// StopAll cancels every active run and waits for them to return
func (e *RunExecutor) StopAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.Stop(id); err != nil && !errors.Is(err, ErrRunTerminal) {
			logger.Warn("failed to stop run", "run_id", id, "error", err)
		}
	}
	e.Wait()
}

// Wait blocks until every started run has returned
func (e *RunExecutor) Wait() {
	e.wg.Wait()
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) runSweep(ctx context.Context, runID string) {
	defer e.wg.Done()
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}
	log := logger.With("run_id", runID)

	collector := metrics.NewCollector()
	if err := e.store.SetCollector(runID, collector); err != nil {
		log.Error("failed to attach collector", "error", err)
	}

	sink := output.MultiSink{&archiveSink{ctx: ctx, runID: runID, archive: e.archive}}
	if e.artifactsDir != "" {
		csv, err := output.NewCSVSink(filepath.Join(e.artifactsDir, runID), rec.Config.Output.Prefix)
		if err != nil {
			log.Error("failed to prepare artifacts directory", "error", err)
			e.finish(runID, models.RunStatusFailed, err.Error())
			return
		}
		sink = append(sink, csv)
	}

	runner := sweep.NewRunner(rec.Config, sink)
	runner.SetCollector(collector)
	runner.SetLogger(log)
	runner.SetObserver(func(t float64, s ising.Sample) {
		_ = e.store.AppendSample(runID, t, s.Energy)
		e.hub.Publish(StreamEvent{
			Type:        EventSample,
			RunID:       runID,
			Temperature: t,
			Attempts:    s.Attempts,
			Energy:      s.Energy,
		})
	})
	runner.SetResultHandler(func(_ int, res *ising.Result) {
		tr := models.NewTrace(res.Params.Temperature, res.Trace)
		tr.FileName = output.FileName(rec.Config.Output.Prefix, res.Params.Temperature)
		tr.Attempted = res.Attempted
		tr.Accepted = res.Accepted
		if err := e.store.CompleteTemperature(runID, tr); err != nil {
			log.Error("failed to store trace", "temperature", res.Params.Temperature, "error", err)
		}
	})

	_, err := runner.Run(ctx)
	if setErr := e.store.SetMetrics(runID, metrics.ConvertToRunMetrics(collector)); setErr != nil {
		log.Error("failed to store metrics", "error", setErr)
	}

	switch {
	case err == nil:
		e.finish(runID, models.RunStatusCompleted, "")
	case ctx.Err() != nil:
		e.finish(runID, models.RunStatusCancelled, "")
	default:
		log.Error("run failed", "error", err)
		e.finish(runID, models.RunStatusFailed, err.Error())
	}
}

func (e *RunExecutor) finish(runID string, status models.RunStatus, errMsg string) {
	updated, err := e.store.SetStatus(runID, status, errMsg)
	if err != nil {
		// Stop already moved the run to a terminal state
		if !errors.Is(err, ErrRunTerminal) {
			logger.Error("failed to set final status", "run_id", runID, "error", err)
		}
		return
	}
	logger.Info("run finished", "run_id", runID, "status", status, "completed", updated.Run.Completed)
	e.publishStatus(updated)
}

func (e *RunExecutor) publishStatus(rec *RunRecord) {
	e.hub.Publish(StreamEvent{
		Type:      EventStatus,
		RunID:     rec.Run.ID,
		Status:    rec.Run.Status,
		Completed: rec.Run.Completed,
		Error:     rec.Run.Error,
	})
	if rec.Run.Status.IsTerminal() {
		e.hub.CloseRun(rec.Run.ID)
	}
}

// archiveSink persists finished traces when an archive is configured; the
// in-memory copy is stored by the result handler.
type archiveSink struct {
	ctx     context.Context
	runID   string
	archive *Archive
}

func (s *archiveSink) WriteTrace(t float64, trace []int64) error {
	if s.archive == nil {
		return nil
	}
	return s.archive.SaveTrace(s.ctx, s.runID, t, trace)
}
