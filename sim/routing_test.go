package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStations(t *testing.T) map[string]*Station {
	t.Helper()
	return map[string]*Station{
		"A": NewStation("A", 1, 5, constDist(t, 1)),
		"B": NewStation("B", 1, 5, constDist(t, 1)),
	}
}

func TestSelectDownstream_SingleCandidateShortCircuits(t *testing.T) {
	stations := twoStations(t)
	decision, err := SelectDownstream(RouteRandom, []string{"A"}, stations, nil, nil, 0, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)
	assert.Equal(t, "A", decision.StationID)
}

func TestSelectDownstream_ShortestQueue(t *testing.T) {
	stations := twoStations(t)
	require.NoError(t, stations["A"].Enqueue(newEntity(1, 0), 0))
	require.NoError(t, stations["A"].Enqueue(newEntity(2, 0), 0))

	decision, err := SelectDownstream(RouteShortestQueue, []string{"A", "B"}, stations, nil, nil, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", decision.StationID)
}

func TestSelectDownstream_RoundRobinAdvances(t *testing.T) {
	stations := twoStations(t)
	rr := &roundRobinState{}

	first, err := SelectDownstream(RouteRoundRobin, []string{"A", "B"}, stations, nil, nil, 0, nil, rr)
	require.NoError(t, err)
	second, err := SelectDownstream(RouteRoundRobin, []string{"A", "B"}, stations, nil, nil, 0, nil, rr)
	require.NoError(t, err)
	third, err := SelectDownstream(RouteRoundRobin, []string{"A", "B"}, stations, nil, nil, 0, nil, rr)
	require.NoError(t, err)

	assert.Equal(t, first.StationID, third.StationID)
	assert.NotEqual(t, first.StationID, second.StationID)
}

func TestSelectDownstream_PriorityBasedRoutesHighPriorityToPrimary(t *testing.T) {
	stations := twoStations(t)
	rr := &roundRobinState{}
	e := newEntity(1, 0)
	e.Attributes.Priority = 5

	decision, err := SelectDownstream(RoutePriorityBased, []string{"A", "B"}, stations, nil, e, 0, nil, rr)
	require.NoError(t, err)
	assert.Equal(t, "A", decision.StationID)
}

func TestSelectDownstream_WeightedRandomRespectsWeights(t *testing.T) {
	stations := twoStations(t)
	weights := map[string]float64{"A": 0, "B": 1}
	rng := rand.New(rand.NewSource(5))

	for i := 0; i < 20; i++ {
		decision, err := SelectDownstream(RouteWeightedRandom, []string{"A", "B"}, stations, weights, nil, 0, rng, nil)
		require.NoError(t, err)
		assert.Equal(t, "B", decision.StationID)
	}
}

func TestSelectDownstream_NoCandidatesErrors(t *testing.T) {
	stations := twoStations(t)
	_, err := SelectDownstream(RouteRandom, nil, stations, nil, nil, 0, rand.New(rand.NewSource(1)), nil)
	assert.ErrorIs(t, err, ErrUnknownStation)
}

func TestSelectDownstream_UnknownRuleErrors(t *testing.T) {
	stations := twoStations(t)
	_, err := SelectDownstream("BOGUS", []string{"A", "B"}, stations, nil, nil, 0, rand.New(rand.NewSource(1)), nil)
	assert.Error(t, err)
}
