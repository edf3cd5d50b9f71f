package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
machines:
  - id: M1
    capacity: 1
    queue_capacity: 20
    service:
      distribution: constant
      value: 2
flow: [M1]
arrival:
  distribution: constant
  value: 3
simulation_time: 50
warmup_time: 0
replications: 2
base_seed: 7
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunSimulation_ValidConfigSucceeds(t *testing.T) {
	configPath = writeTempConfig(t, validConfigYAML)
	seedOverride, repsOverride = 0, 0
	logLevel = "error"
	parallel = false

	err := runSimulation(runCmd, nil)
	assert.NoError(t, err)
}

func TestRunSimulation_MissingConfigFileReturnsExitCodeTwo(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	logLevel = "error"

	err := runSimulation(runCmd, nil)
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeFor(err))
}

func TestRunSimulation_InvalidConfigReturnsExitCodeTwo(t *testing.T) {
	configPath = writeTempConfig(t, `
machines: []
flow: []
arrival:
  distribution: constant
  value: 1
simulation_time: -1
replications: 1
`)
	logLevel = "error"

	err := runSimulation(runCmd, nil)
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeFor(err))
}

func TestRunSimulation_InvalidLogLevelReturnsExitCodeTwo(t *testing.T) {
	configPath = writeTempConfig(t, validConfigYAML)
	logLevel = "not-a-level"

	err := runSimulation(runCmd, nil)
	require.Error(t, err)
	assert.Equal(t, 2, exitCodeFor(err))
	logLevel = "error"
}

func TestRunSimulation_SeedAndRepsOverridesApplyOnlyWhenFlagChanged(t *testing.T) {
	configPath = writeTempConfig(t, validConfigYAML)
	logLevel = "error"
	parallel = false

	// runAndCountReps runs the command and returns replications_run from
	// the JSON document it writes to stdout.
	runAndCountReps := func() int {
		t.Helper()
		r, w, err := os.Pipe()
		require.NoError(t, err)
		stdout := os.Stdout
		os.Stdout = w
		runErr := runSimulation(runCmd, nil)
		os.Stdout = stdout
		require.NoError(t, w.Close())
		assert.NoError(t, runErr)
		var out struct {
			ReplicationsRun int `json:"replications_run"`
		}
		require.NoError(t, json.NewDecoder(r).Decode(&out))
		return out.ReplicationsRun
	}

	// Flag not changed: the config file's replications (2) stands.
	repsOverride = 4
	assert.Equal(t, 2, runAndCountReps())

	require.NoError(t, runCmd.Flags().Set("reps", "4"))
	defer func() { _ = runCmd.Flags().Set("reps", "0") }()

	assert.Equal(t, 4, runAndCountReps())
}
