package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntity_ValueAddedTimeSumsAcrossStations(t *testing.T) {
	e := newEntity(1, 0)
	e.timestampsFor("A").ProcessStartTime = 0
	e.timestampsFor("A").ProcessEndTime = 4
	e.timestampsFor("B").ProcessStartTime = 4
	e.timestampsFor("B").ProcessEndTime = 9

	assert.InDelta(t, 9.0, e.ValueAddedTime(), 1e-9)
}

func TestEntity_CycleTimeAndWaitTime(t *testing.T) {
	e := newEntity(1, 2)
	e.ExitTime = 20
	e.timestampsFor("A").ProcessStartTime = 5
	e.timestampsFor("A").ProcessEndTime = 10

	assert.InDelta(t, 18.0, e.CycleTime(), 1e-9)
	assert.InDelta(t, 13.0, e.WaitTime(), 1e-9)
}

func TestEntity_TimestampsForCreatesOncePerStation(t *testing.T) {
	e := newEntity(1, 0)
	first := e.timestampsFor("A")
	first.EnqueueTime = 3
	second := e.timestampsFor("A")

	assert.Same(t, first, second)
	assert.Equal(t, 3.0, second.EnqueueTime)
}

func TestNewEntity_DefaultsExpectedProcessingToUnset(t *testing.T) {
	e := newEntity(7, 1)
	assert.Equal(t, -1.0, e.Attributes.ExpectedProcessing)
	assert.Empty(t, e.Timestamps)
	assert.False(t, e.Completed)
	assert.False(t, e.Rejected)
}
