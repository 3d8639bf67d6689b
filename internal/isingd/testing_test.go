package isingd

import (
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

// three temperatures, 20 samples each
const smallConfigYAML = `
simulation:
  lattice_size: 4
  steps: 2000
  sample_interval: 100
  seed: 7
sweep:
  start: 2.5
  end: 2.506
  step: 0.003
`

// runs until stopped
const endlessConfigYAML = `
simulation:
  lattice_size: 8
  steps: 1000000000000
  sample_interval: 1000
  seed: 3
sweep:
  start: 2.5
  end: 2.5
  step: 0.003
`

func mustConfig(t *testing.T, text string) *config.Config {
	t.Helper()
	cfg, err := config.ParseConfigYAMLString(text)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func waitForStatus(t *testing.T, store *RunStore, runID string, want models.RunStatus) *RunRecord {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(runID)
		if !ok {
			t.Fatalf("run %s disappeared", runID)
		}
		if rec.Run.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s never reached %s", runID, want)
	return nil
}
