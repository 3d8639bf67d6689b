package isingd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

func newTestServer() (*HTTPServer, *RunStore, *RunExecutor) {
	store := NewRunStore()
	exec := NewRunExecutor(store)
	return NewHTTPServer(store, exec), store, exec
}

func doRequest(t *testing.T, srv *HTTPServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v: %s", err, rr.Body.String())
	}
	return body
}

func createBody(t *testing.T, runID, cfgYAML string, start bool) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"run_id":      runID,
		"config_yaml": cfgYAML,
		"start":       start,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestHTTPServerHealthz(t *testing.T) {
	srv, _, _ := newTestServer()
	rr := doRequest(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["timestamp"] == "" {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestHTTPServerCreateRun(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "", smallConfigYAML, false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	run, ok := decodeJSON(t, rr)["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response")
	}
	if run["id"] == "" {
		t.Fatalf("expected generated id")
	}
	if run["status"] != string(models.RunStatusPending) {
		t.Fatalf("expected pending, got %v", run["status"])
	}
	if run["temperatures"] != float64(3) {
		t.Fatalf("expected 3 temperatures, got %v", run["temperatures"])
	}
}

func TestHTTPServerCreateRunErrors(t *testing.T) {
	srv, _, _ := newTestServer()

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"bad config", createBody(t, "", "simulation:\n  lattice_size: 0\n", false), http.StatusBadRequest},
		{"bad id", createBody(t, "a:b", smallConfigYAML, false), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, srv, http.MethodPost, "/v1/runs", tc.body)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
		})
	}

	if rr := doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "dup", smallConfigYAML, false)); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if rr := doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "dup", smallConfigYAML, false)); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestHTTPServerListRuns(t *testing.T) {
	srv, store, _ := newTestServer()
	for _, id := range []string{"a", "b"} {
		if _, err := store.Create(id, mustConfig(t, smallConfigYAML)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	_, _ = store.SetStatus("b", models.RunStatusFailed, "x")

	body := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs", ""))
	if runs := body["runs"].([]any); len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	body = decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs?status=FAILED&limit=5", ""))
	runs := body["runs"].([]any)
	if len(runs) != 1 || runs[0].(map[string]any)["id"] != "b" {
		t.Fatalf("unexpected filtered runs %v", runs)
	}

	if rr := doRequest(t, srv, http.MethodGet, "/v1/runs?status=bogus", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
	if rr := doRequest(t, srv, http.MethodDelete, "/v1/runs", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHTTPServerRunLifecycle(t *testing.T) {
	srv, store, exec := newTestServer()

	rr := doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "life", smallConfigYAML, false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d", rr.Code)
	}

	if rr := doRequest(t, srv, http.MethodGet, "/v1/runs/life/metrics", ""); rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 before start, got %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodPost, "/v1/runs/life:start", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rr.Code, rr.Body.String())
	}
	exec.Wait()

	run := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs/life", ""))["run"].(map[string]any)
	if run["status"] != string(models.RunStatusCompleted) || run["completed"] != float64(3) {
		t.Fatalf("unexpected run %v", run)
	}

	rr = doRequest(t, srv, http.MethodGet, "/v1/runs/life/trace?temperature=2.503", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("trace: %d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "E_2.503000.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	got, err := output.ReadTrace(rr.Body)
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	stored, _ := store.Trace("life", 2.503)
	if len(got) != 20 || len(got) != stored.Len() {
		t.Fatalf("expected 20 samples, got %d", len(got))
	}
	for i, e := range stored.Energies() {
		if got[i] != e {
			t.Fatalf("sample %d: got %d want %d", i, got[i], e)
		}
	}

	traces := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs/life/traces", ""))["traces"].([]any)
	if len(traces) != 3 || traces[0].(map[string]any)["temperature"] != 2.5 {
		t.Fatalf("unexpected traces %v", traces)
	}

	metricsBody := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs/life/metrics", ""))
	metrics := metricsBody["metrics"].(map[string]any)
	if metrics["attempted_flips"] != float64(6000) {
		t.Fatalf("unexpected metrics %v", metrics)
	}
	summary := metricsBody["summary"].(map[string]any)
	aggs := summary["aggregations"].(map[string]any)
	if aggs["trace_samples"].(map[string]any)["sum"] != float64(60) {
		t.Fatalf("unexpected summary %v", summary)
	}

	ts := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs/life/metrics/timeseries?metric=trace_samples&temperature=2.5", ""))
	points := ts["points"].([]any)
	if len(points) != 1 || points[0].(map[string]any)["value"] != float64(20) {
		t.Fatalf("unexpected points %v", points)
	}
	names := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs/life/metrics/timeseries", ""))["metrics"].([]any)
	if len(names) == 0 {
		t.Fatalf("expected metric names")
	}

	if rr := doRequest(t, srv, http.MethodPost, "/v1/runs/life:stop", ""); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 stopping a completed run, got %d", rr.Code)
	}
}

func TestHTTPServerRunByIDErrors(t *testing.T) {
	srv, store, _ := newTestServer()
	if _, err := store.Create("r", mustConfig(t, smallConfigYAML)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/v1/runs/", http.StatusBadRequest},
		{http.MethodGet, "/v1/runs/missing", http.StatusNotFound},
		{http.MethodPost, "/v1/runs/r", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/runs/r:stop", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/runs/missing:stop", http.StatusNotFound},
		{http.MethodPost, "/v1/runs/missing:start", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/r/trace", http.StatusBadRequest},
		{http.MethodGet, "/v1/runs/r/trace?temperature=hot", http.StatusBadRequest},
		{http.MethodGet, "/v1/runs/r/trace?temperature=2.5", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/missing/traces", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/r/unknown", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/missing/stream", http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := doRequest(t, srv, tc.method, tc.path, "")
		if rr.Code != tc.code {
			t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.code, rr.Code, rr.Body.String())
		}
	}
}

func TestHTTPServerStopRunningRun(t *testing.T) {
	srv, store, exec := newTestServer()

	rr := doRequest(t, srv, http.MethodPost, "/v1/runs", createBody(t, "long", endlessConfigYAML, true))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	waitForStatus(t, store, "long", models.RunStatusRunning)

	rr = doRequest(t, srv, http.MethodPost, "/v1/runs/long:stop", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("stop: %d %s", rr.Code, rr.Body.String())
	}
	exec.Wait()
	waitForStatus(t, store, "long", models.RunStatusCancelled)
}

func TestHTTPServerTraceFromArchive(t *testing.T) {
	srv, _, exec := newTestServer()
	archive := openTestArchive(t)
	exec.SetArchive(archive)

	if err := archive.SaveTrace(context.Background(), "old-run", 3.1, []int64{4, 8}); err != nil {
		t.Fatalf("SaveTrace: %v", err)
	}

	rr := doRequest(t, srv, http.MethodGet, "/v1/runs/old-run/trace?temperature=3.1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected archived trace, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "4\n8\n" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}

	traces := decodeJSON(t, doRequest(t, srv, http.MethodGet, "/v1/runs/old-run/traces", ""))["traces"].([]any)
	if len(traces) != 1 {
		t.Fatalf("expected one archived trace, got %v", traces)
	}
}

func TestHTTPServerStream(t *testing.T) {
	srv, store, exec := newTestServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	if _, err := store.Create("live", mustConfig(t, smallConfigYAML)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/runs/live/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readEvent := func() (StreamEvent, error) {
		var ev StreamEvent
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return ev, err
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("bad event %s: %v", msg, err)
		}
		return ev, nil
	}

	first, err := readEvent()
	if err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if first.Type != EventStatus || first.Status != models.RunStatusPending {
		t.Fatalf("unexpected initial event %+v", first)
	}

	if _, err := exec.Start("live"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	samples := 0
	var last StreamEvent
	for {
		ev, err := readEvent()
		if err != nil {
			break
		}
		if ev.Type == EventSample {
			samples++
			if ev.RunID != "live" || ev.Attempts%100 != 0 {
				t.Fatalf("unexpected sample %+v", ev)
			}
		}
		last = ev
	}
	exec.Wait()

	if samples != 60 {
		t.Fatalf("expected 60 samples, got %d", samples)
	}
	if last.Type != EventStatus || last.Status != models.RunStatusCompleted || last.Completed != 3 {
		t.Fatalf("unexpected final event %+v", last)
	}
}
