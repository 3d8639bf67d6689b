package isingd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/ising-core/internal/metrics"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	Executor *RunExecutor
}

func NewHTTPServer(store *RunStore, executor *RunExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// handleRuns handles /v1/runs endpoint
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type route struct {
	suffix  string
	method  string
	handler func(http.ResponseWriter, *http.Request, string)
}

// handleRunByID handles /v1/runs/{id} and related endpoints
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	// longer suffixes first
	routes := []route{
		{":start", http.MethodPost, s.handleStartRun},
		{":stop", http.MethodPost, s.handleStopRun},
		{"/metrics/timeseries", http.MethodGet, s.handleTimeSeries},
		{"/metrics", http.MethodGet, s.handleGetRunMetrics},
		{"/traces", http.MethodGet, s.handleListTraces},
		{"/trace", http.MethodGet, s.handleGetTrace},
		{"/stream", http.MethodGet, s.handleStream},
	}
	for _, rt := range routes {
		if !strings.HasSuffix(path, rt.suffix) {
			continue
		}
		runID := strings.TrimSuffix(path, rt.suffix)
		if runID == "" {
			s.writeError(w, http.StatusBadRequest, "run ID is required")
			return
		}
		if r.Method != rt.method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.handler(w, r, runID)
		return
	}

	if strings.Contains(path, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method == http.MethodGet {
		s.handleGetRun(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID      string `json:"run_id,omitempty"`
		ConfigYAML string `json:"config_yaml,omitempty"`
		Start      bool   `json:"start,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg, err := config.ParseConfigYAMLString(req.ConfigYAML)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}

	rec, err := s.store.Create(req.RunID, cfg)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "already exists"):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	logger.Info("run created (HTTP)", "run_id", rec.Run.ID, "temperatures", len(rec.Run.Temperatures))

	if req.Start {
		rec, err = s.Executor.Start(rec.Run.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": convertRunToJSON(rec.Run),
	})
}

// handleListRuns handles GET /v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var statusFilter models.RunStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		statusFilter = models.ParseRunStatus(statusStr)
		if statusFilter == "" {
			s.writeError(w, http.StatusBadRequest, "unknown status: "+statusStr)
			return
		}
	}

	runs := s.store.List(limit, offset, statusFilter)

	runsJSON := make([]map[string]any, 0, len(runs))
	for _, rec := range runs {
		runsJSON = append(runsJSON, convertRunToJSON(rec.Run))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runsJSON,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": convertRunToJSON(rec.Run),
	})
}

// handleStartRun handles POST /v1/runs/{id}:start
func (s *HTTPServer) handleStartRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Start(runID)
	if err != nil {
		s.writeExecutorError(w, err)
		return
	}

	logger.Info("run started (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": convertRunToJSON(updated.Run),
	})
}

// handleStopRun handles POST /v1/runs/{id}:stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		s.writeExecutorError(w, err)
		return
	}

	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": convertRunToJSON(updated.Run),
	})
}

func (s *HTTPServer) writeExecutorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRunIDMissing):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRunTerminal):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleGetRunMetrics handles GET /v1/runs/{id}/metrics. While a run is in
// progress the metrics cover the temperatures finished so far.
func (s *HTTPServer) handleGetRunMetrics(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	m := rec.Run.Metrics
	if m == nil {
		if collector, ok := s.store.GetCollector(runID); ok {
			m = metrics.ConvertToRunMetrics(collector)
		}
	}
	if m == nil {
		s.writeError(w, http.StatusPreconditionFailed, "metrics not available")
		return
	}

	resp := map[string]any{
		"metrics": m,
	}
	if collector, ok := s.store.GetCollector(runID); ok {
		resp["summary"] = collector.GetSummary()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleTimeSeries handles GET /v1/runs/{id}/metrics/timeseries?metric=M[&temperature=T]
func (s *HTTPServer) handleTimeSeries(w http.ResponseWriter, r *http.Request, runID string) {
	if _, ok := s.store.Get(runID); !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	collector, ok := s.store.GetCollector(runID)
	if !ok {
		s.writeError(w, http.StatusPreconditionFailed, "time-series metrics not available")
		return
	}

	metricName := r.URL.Query().Get("metric")
	if metricName == "" {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"metrics": collector.GetMetricNames(),
		})
		return
	}

	var labelSets []map[string]string
	if tStr := r.URL.Query().Get("temperature"); tStr != "" {
		t, err := strconv.ParseFloat(tStr, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid temperature: "+err.Error())
			return
		}
		labelSets = []map[string]string{metrics.TemperatureLabels(t)}
	} else {
		labelSets = collector.GetLabelsForMetric(metricName)
	}

	points := make([]*models.MetricPoint, 0)
	for _, labels := range labelSets {
		points = append(points, collector.GetTimeSeries(metricName, labels)...)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"metric": metricName,
		"points": points,
	})
}

// handleListTraces handles GET /v1/runs/{id}/traces
func (s *HTTPServer) handleListTraces(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		archive := s.Executor.Archive()
		if archive == nil {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		ts, err := archive.Temperatures(r.Context(), runID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(ts) == 0 {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		traces := make([]map[string]any, 0, len(ts))
		for _, t := range ts {
			traces = append(traces, map[string]any{"temperature": t, "archived": true})
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"traces": traces})
		return
	}

	traces := make([]map[string]any, 0, len(rec.Traces))
	for _, t := range s.store.TraceTemperatures(runID) {
		tr := rec.Traces[TemperatureKey(t)]
		if tr == nil {
			continue
		}
		traces = append(traces, map[string]any{
			"temperature": tr.Temperature,
			"file_name":   tr.FileName,
			"samples":     tr.Len(),
			"attempted":   tr.Attempted,
			"accepted":    tr.Accepted,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"traces": traces})
}

// handleGetTrace handles GET /v1/runs/{id}/trace?temperature=T and returns
// the artifact body (one integer per line). A temperature still running
// returns its samples so far with X-Trace-Partial set.
func (s *HTTPServer) handleGetTrace(w http.ResponseWriter, r *http.Request, runID string) {
	tStr := r.URL.Query().Get("temperature")
	if tStr == "" {
		s.writeError(w, http.StatusBadRequest, "temperature is required")
		return
	}
	t, err := strconv.ParseFloat(tStr, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid temperature: "+err.Error())
		return
	}

	prefix := config.DefaultOutputPrefix
	var energies []int64
	found, partial := false, false
	if rec, ok := s.store.Get(runID); ok {
		prefix = rec.Config.Output.Prefix
		if tr, ok := rec.Traces[TemperatureKey(t)]; ok {
			energies = tr.Energies()
			found = true
		} else if tr, ok := s.store.LiveTrace(runID, t); ok {
			energies = tr.Energies()
			found, partial = true, true
		}
	}
	if !found && s.Executor.Archive() != nil {
		energies, err = s.Executor.Archive().LoadTrace(r.Context(), runID, t)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, ErrTraceNotArchived):
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "trace not found")
		return
	}

	var buf bytes.Buffer
	if err := output.WriteTrace(&buf, energies); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if partial {
		w.Header().Set("X-Trace-Partial", "true")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+output.FileName(prefix, t)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error("failed to write trace response", "run_id", runID, "error", err)
	}
}

// handleStream handles GET /v1/runs/{id}/stream (websocket)
func (s *HTTPServer) handleStream(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.Executor.Hub().ServeWS(w, r, runID, StreamEvent{
		Type:      EventStatus,
		RunID:     runID,
		Status:    rec.Run.Status,
		Completed: rec.Run.Completed,
		Error:     rec.Run.Error,
	})
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func unixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func convertRunToJSON(run models.Run) map[string]any {
	out := map[string]any{
		"id":                 run.ID,
		"status":             string(run.Status),
		"created_at_unix_ms": unixMs(run.CreatedAt),
		"started_at_unix_ms": unixMs(run.StartedAt),
		"ended_at_unix_ms":   unixMs(run.EndedAt),
		"temperatures":       len(run.Temperatures),
		"completed":          run.Completed,
		"error":              run.Error,
	}
	if run.Metrics != nil {
		out["metrics"] = run.Metrics
	}
	return out
}
