package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorysim/des-engine/sim"
)

func resultWith(index int, throughput, cycleTime, wip float64, util float64) sim.ReplicationResult {
	return sim.ReplicationResult{
		Index:          index,
		Throughput:     throughput,
		CycleTime:      cycleTime,
		ValueAddedTime: cycleTime * 0.5,
		WaitTime:       cycleTime * 0.5,
		WIP:            wip,
		Stations: map[string]sim.StationResult{
			"M1": {Utilization: util, AverageQueueLength: 2, PartsProcessed: 100},
		},
	}
}

func TestAggregate_SummarizesMeanStdDevAndConfidenceInterval(t *testing.T) {
	results := []sim.ReplicationResult{
		resultWith(0, 10, 20, 3, 0.8),
		resultWith(1, 12, 22, 3.5, 0.82),
		resultWith(2, 11, 21, 3.2, 0.81),
	}

	out, err := aggregate(results, false)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, out.Throughput.Mean, 1e-9)
	assert.Greater(t, out.Throughput.StdDev, 0.0)
	assert.Greater(t, out.Throughput.ConfidenceHalfWidth95, 0.0)
	assert.Equal(t, 3, out.ReplicationsSucceeded)
}

func TestAggregate_ExcludesFailedAndTimedOutReplications(t *testing.T) {
	ok := resultWith(0, 10, 20, 3, 0.5)
	failed := sim.ReplicationResult{Index: 1, Failed: true, Cause: "boom"}
	timedOut := sim.ReplicationResult{Index: 2, Timeout: true, Cause: "timeout"}

	out, err := aggregate([]sim.ReplicationResult{ok, failed, timedOut}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, out.ReplicationsRun)
	assert.Equal(t, 1, out.ReplicationsSucceeded)
	assert.Equal(t, 1, out.ReplicationsFailed)
	assert.Equal(t, 1, out.ReplicationsTimedOut)
	assert.InDelta(t, 10.0, out.Throughput.Mean, 1e-9)
}

func TestAggregate_AllFailedReturnsNoSuccessfulReplicationsError(t *testing.T) {
	failed := sim.ReplicationResult{Index: 0, Failed: true}
	out, err := aggregate([]sim.ReplicationResult{failed}, false)
	assert.ErrorIs(t, err, sim.ErrNoSuccessfulReplications)
	assert.Equal(t, 0, out.ReplicationsSucceeded)
}

func TestAggregate_SingleReplicationHasZeroConfidenceHalfWidth(t *testing.T) {
	out, err := aggregate([]sim.ReplicationResult{resultWith(0, 10, 20, 3, 0.5)}, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Throughput.ConfidenceHalfWidth95)
	assert.Equal(t, 0.0, out.Throughput.StdDev)
}

func TestAggregate_BottleneckIdentifiesHighestUtilizationStation(t *testing.T) {
	results := []sim.ReplicationResult{
		{
			Index: 0,
			Stations: map[string]sim.StationResult{
				"M1": {Utilization: 0.5},
				"M2": {Utilization: 0.97},
			},
		},
	}
	out, err := aggregate(results, false)
	require.NoError(t, err)
	assert.Equal(t, "M2", out.Bottleneck.StationID)
	assert.Equal(t, "high", out.Bottleneck.Severity)
}

func TestAggregate_LittlesLawDiscrepancyFlaggedWhenMismatched(t *testing.T) {
	// throughput*cycleTime/60 should roughly equal WIP under Little's Law;
	// deliberately mismatch WIP to trigger the >10% relative error flag.
	results := []sim.ReplicationResult{
		resultWith(0, 60, 60, 1000, 0.5), // estimate = 60*1 = 60, observed WIP = 1000
	}
	out, err := aggregate(results, false)
	require.NoError(t, err)
	assert.True(t, out.LittlesLawDiscrepancy)
	assert.Greater(t, out.LittlesLawRelativeError, 0.10)
}

func TestAggregate_KeepReplicationsRetainsRawResults(t *testing.T) {
	results := []sim.ReplicationResult{resultWith(0, 10, 20, 3, 0.5)}
	out, err := aggregate(results, true)
	require.NoError(t, err)
	require.Len(t, out.Replications, 1)
	assert.Equal(t, 0, out.Replications[0].Index)
}
