package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityFor_BucketsByThreshold(t *testing.T) {
	assert.Equal(t, "high", SeverityFor(0.95))
	assert.Equal(t, "high", SeverityFor(0.99))
	assert.Equal(t, "medium", SeverityFor(0.85))
	assert.Equal(t, "medium", SeverityFor(0.90))
	assert.Equal(t, "low", SeverityFor(0.84))
	assert.Equal(t, "low", SeverityFor(0.0))
}

func TestEngine_Result_EmptyStationMapWhenNoMachinesConfigured(t *testing.T) {
	cfg := singleStationConfig()
	cfg.Machines = nil
	cfg.Flow = nil
	e := mustEngine(t, cfg, 1)

	result := e.Result(0)
	assert.Empty(t, result.Stations)
	assert.Equal(t, 0, result.EntitiesCompleted)
}
