package isingd

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	rec, err := store.Create("", mustConfig(t, smallConfigYAML))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.Run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if rec.Run.Status != models.RunStatusPending {
		t.Fatalf("expected status pending, got %v", rec.Run.Status)
	}
	if rec.Run.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
	if len(rec.Run.Temperatures) != 3 {
		t.Fatalf("expected 3 temperatures, got %v", rec.Run.Temperatures)
	}

	got, ok := store.Get(rec.Run.ID)
	if !ok {
		t.Fatalf("expected run to exist")
	}
	if got.Run.ID != rec.Run.ID {
		t.Fatalf("expected same run id")
	}
}

func TestRunStoreCreateRejects(t *testing.T) {
	store := NewRunStore()
	cfg := mustConfig(t, smallConfigYAML)
	if _, err := store.Create("run-1", cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Create("run-1", cfg); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := store.Create("a/b", cfg); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if _, err := store.Create("x", nil); err == nil {
		t.Fatalf("expected missing config error")
	}
}

func TestRunStoreSetStatusSetsTimestamps(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("r", mustConfig(t, smallConfigYAML))

	running, err := store.SetStatus(rec.Run.ID, models.RunStatusRunning, "")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if running.Run.StartedAt.IsZero() {
		t.Fatalf("expected started_at to be set")
	}

	failed, err := store.SetStatus(rec.Run.ID, models.RunStatusFailed, "boom")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if failed.Run.EndedAt.IsZero() || failed.Run.Error != "boom" {
		t.Fatalf("unexpected terminal record: %+v", failed.Run)
	}

	if _, err := store.SetStatus(rec.Run.ID, models.RunStatusCompleted, ""); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
	if _, err := store.SetStatus("missing", models.RunStatusRunning, ""); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreList(t *testing.T) {
	store := NewRunStore()
	cfg := mustConfig(t, smallConfigYAML)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Create(id, cfg); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := store.SetStatus("b", models.RunStatusRunning, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	all := store.List(0, 0, "")
	if len(all) != 3 || all[0].Run.ID != "a" || all[2].Run.ID != "c" {
		t.Fatalf("unexpected list order: %d", len(all))
	}
	page := store.List(1, 1, "")
	if len(page) != 1 || page[0].Run.ID != "b" {
		t.Fatalf("unexpected page")
	}
	running := store.List(10, 0, models.RunStatusRunning)
	if len(running) != 1 || running[0].Run.ID != "b" {
		t.Fatalf("unexpected filter result")
	}
}

func TestRunStoreCompleteTemperature(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("r", mustConfig(t, smallConfigYAML))

	tr := models.NewTrace(2.503, []int64{4, 0, -8})
	if err := store.CompleteTemperature(rec.Run.ID, tr); err != nil {
		t.Fatalf("CompleteTemperature: %v", err)
	}
	// same temperature again does not double count
	if err := store.CompleteTemperature(rec.Run.ID, tr); err != nil {
		t.Fatalf("CompleteTemperature: %v", err)
	}

	got, _ := store.Get(rec.Run.ID)
	if got.Run.Completed != 1 {
		t.Fatalf("expected completed 1, got %d", got.Run.Completed)
	}
	stored, ok := store.Trace(rec.Run.ID, 2.503)
	if !ok || stored.Len() != 3 {
		t.Fatalf("expected stored trace")
	}
	if ts := store.TraceTemperatures(rec.Run.ID); len(ts) != 1 || ts[0] != 2.503 {
		t.Fatalf("unexpected temperatures %v", ts)
	}
	if err := store.CompleteTemperature("missing", tr); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreLiveTrace(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("r", mustConfig(t, smallConfigYAML))

	for _, e := range []int64{4, 0, -4} {
		if err := store.AppendSample(rec.Run.ID, 2.5, e); err != nil {
			t.Fatalf("AppendSample: %v", err)
		}
	}
	live, ok := store.LiveTrace(rec.Run.ID, 2.5)
	if !ok || live.Len() != 3 {
		t.Fatalf("expected live trace with 3 samples")
	}

	if err := store.CompleteTemperature(rec.Run.ID, models.NewTrace(2.5, []int64{4, 0, -4})); err != nil {
		t.Fatalf("CompleteTemperature: %v", err)
	}
	if _, ok := store.LiveTrace(rec.Run.ID, 2.5); ok {
		t.Fatalf("live trace should be dropped once complete")
	}
	// late samples for a finished temperature are ignored
	if err := store.AppendSample(rec.Run.ID, 2.5, 8); err != nil {
		t.Fatalf("AppendSample: %v", err)
	}
	if _, ok := store.LiveTrace(rec.Run.ID, 2.5); ok {
		t.Fatalf("finished temperature should not grow a live trace")
	}
	if err := store.AppendSample("missing", 2.5, 1); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestTemperatureKey(t *testing.T) {
	if got := TemperatureKey(2.5); got != "2.500000" {
		t.Fatalf("TemperatureKey(2.5) = %q", got)
	}
	if TemperatureKey(2.5030000000000001) != TemperatureKey(2.503) {
		t.Fatalf("keys should match after formatting")
	}
}
