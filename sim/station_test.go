package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constDist(t *testing.T, v float64) Distribution {
	t.Helper()
	d, err := NewConstantDistribution(v)
	require.NoError(t, err)
	return d
}

func TestStation_CanAcceptRespectsCapacityAndState(t *testing.T) {
	st := NewStation("M1", 2, 5, constDist(t, 1))
	assert.True(t, st.CanAccept())

	e1 := newEntity(1, 0)
	e2 := newEntity(2, 0)
	st.StartProcessing(e1, 0)
	assert.True(t, st.CanAccept())
	st.StartProcessing(e2, 0)
	assert.False(t, st.CanAccept())

	st.EndProcessing(e1.ID, 1)
	st.EndProcessing(e2.ID, 1)
	st.SetBlocked(e2, 1)
	assert.False(t, st.CanAccept())
}

func TestStation_MaybeIdleStaysBusyWhileOtherSlotsAreServing(t *testing.T) {
	st := NewStation("M1", 2, 5, constDist(t, 1))
	e1 := newEntity(1, 0)
	e2 := newEntity(2, 0)
	st.StartProcessing(e1, 0)
	st.StartProcessing(e2, 0)
	require.Equal(t, StationBusy, st.State())

	st.EndProcessing(e1.ID, 5)
	st.MaybeIdle(5)
	assert.Equal(t, StationBusy, st.State(), "one of two busy slots finishing must not idle the station")

	st.EndProcessing(e2.ID, 8)
	st.MaybeIdle(8)
	assert.Equal(t, StationIdle, st.State(), "the last busy slot finishing should idle the station")

	assert.Equal(t, 8.0, st.CumulativeDuration(StationBusy))
}

func TestStation_EnqueueFailsAtQueueCapacity(t *testing.T) {
	st := NewStation("M1", 1, 1, constDist(t, 1))
	require.NoError(t, st.Enqueue(newEntity(1, 0), 0))

	err := st.Enqueue(newEntity(2, 0), 0)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestStation_DequeueFIFO(t *testing.T) {
	st := NewStation("M1", 1, 10, constDist(t, 1))
	e1, e2, e3 := newEntity(1, 0), newEntity(2, 1), newEntity(3, 2)
	require.NoError(t, st.Enqueue(e1, 0))
	require.NoError(t, st.Enqueue(e2, 1))
	require.NoError(t, st.Enqueue(e3, 2))

	assert.Equal(t, e1.ID, st.Dequeue(3).ID)
	assert.Equal(t, e2.ID, st.Dequeue(3).ID)
	assert.Equal(t, e3.ID, st.Dequeue(3).ID)
	assert.Nil(t, st.Dequeue(3))
}

func TestStation_DequeueLIFO(t *testing.T) {
	st := NewStation("M1", 1, 10, constDist(t, 1))
	st.DequeueRule = RuleLIFO
	e1, e2 := newEntity(1, 0), newEntity(2, 1)
	require.NoError(t, st.Enqueue(e1, 0))
	require.NoError(t, st.Enqueue(e2, 1))

	assert.Equal(t, e2.ID, st.Dequeue(2).ID)
	assert.Equal(t, e1.ID, st.Dequeue(2).ID)
}

func TestStation_DequeueEDD_TiesBreakByArrivalOrder(t *testing.T) {
	st := NewStation("M1", 1, 10, constDist(t, 1))
	st.DequeueRule = RuleEDD

	e1 := newEntity(1, 0)
	e1.Attributes.DueDate = 100
	e2 := newEntity(2, 1)
	e2.Attributes.DueDate = 100
	e3 := newEntity(3, 2)
	e3.Attributes.DueDate = 50

	require.NoError(t, st.Enqueue(e1, 0))
	require.NoError(t, st.Enqueue(e2, 1))
	require.NoError(t, st.Enqueue(e3, 2))

	assert.Equal(t, e3.ID, st.Dequeue(3).ID) // earliest due date first
	assert.Equal(t, e1.ID, st.Dequeue(3).ID) // tie broken by arrival order
	assert.Equal(t, e2.ID, st.Dequeue(3).ID)
}

func TestStation_SetDownZeroesEffectiveCapacity(t *testing.T) {
	st := NewStation("M1", 2, 10, constDist(t, 1))
	st.SetDown(0)
	assert.False(t, st.CanAccept())
	assert.Equal(t, StationDown, st.State())

	st.SetUp(1)
	assert.True(t, st.CanAccept())
	assert.Equal(t, StationIdle, st.State())
}

func TestStation_TransitionsAccumulateDuration(t *testing.T) {
	st := NewStation("M1", 1, 10, constDist(t, 1))
	e := newEntity(1, 0)

	st.StartProcessing(e, 0) // idle -> busy at t=0
	st.EndProcessing(e.ID, 10)
	st.SetIdle(10) // busy -> idle at t=10
	st.Finalize(15)

	assert.Equal(t, 10.0, st.CumulativeDuration(StationBusy))
	assert.Equal(t, 5.0, st.CumulativeDuration(StationIdle))
}

func TestStation_ClearBlockedReturnsEntityAndGoesIdle(t *testing.T) {
	st := NewStation("M1", 1, 10, constDist(t, 1))
	e := newEntity(1, 0)
	st.StartProcessing(e, 0)
	st.EndProcessing(e.ID, 5)
	st.SetBlocked(e, 5)

	released := st.ClearBlocked(8)
	assert.Equal(t, e.ID, released.ID)
	assert.Equal(t, StationIdle, st.State())
}

func TestStation_Reset_RestoresInitialState(t *testing.T) {
	st := NewStation("M1", 1, 10, constDist(t, 1))
	e := newEntity(1, 0)
	st.StartProcessing(e, 0)
	require.NoError(t, st.Enqueue(newEntity(2, 0), 0))

	st.Reset()

	assert.Equal(t, StationIdle, st.State())
	assert.Equal(t, 0, st.QueueLen())
	assert.Equal(t, 0, st.Processed())
	assert.True(t, st.CanAccept())
}
