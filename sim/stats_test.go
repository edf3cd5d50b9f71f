package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeWeightedStat_IntegratesPiecewiseConstant(t *testing.T) {
	s := NewTimeWeightedStat(0)
	s.Update(0, 1)  // value 1 holds from t=0
	s.Update(10, 2) // value 1 held for 10 units, then becomes 2
	s.Finalize(20)  // value 2 held for 10 more units

	// area = 1*10 + 2*10 = 30, mean over [0,20] = 1.5
	assert.InDelta(t, 1.5, s.Mean(20), 1e-9)
}

func TestTimeWeightedStat_GatesOnWarmup(t *testing.T) {
	s := NewTimeWeightedStat(10)
	s.Update(0, 5)  // before warmup: tracked but not integrated
	s.Update(5, 5)
	s.Update(15, 1) // area starts accumulating from warmup (10) at value 5
	s.Finalize(20)

	// area = 5*(15-10) + 1*(20-15) = 25 + 5 = 30, mean over [10,20] = 3.0
	assert.InDelta(t, 3.0, s.Mean(20), 1e-9)
}

func TestTimeWeightedStat_Reset(t *testing.T) {
	s := NewTimeWeightedStat(0)
	s.Update(0, 1)
	s.Finalize(10)
	s.Reset()

	assert.Equal(t, 0.0, s.Mean(10))
}

func TestObservationStat_BasicStatistics(t *testing.T) {
	s := NewObservationStat(0)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Record(1, v)
	}

	assert.Equal(t, 5, s.Count())
	assert.InDelta(t, 3.0, s.Mean(), 1e-9)
	assert.InDelta(t, 1.0, s.Min(), 1e-9)
	assert.InDelta(t, 5.0, s.Max(), 1e-9)
	assert.Greater(t, s.SampleStdDev(), 0.0)
}

func TestObservationStat_DropsPreWarmupSamples(t *testing.T) {
	s := NewObservationStat(10)
	s.Record(5, 100)
	s.Record(15, 7)

	assert.Equal(t, 1, s.Count())
	assert.InDelta(t, 7.0, s.Mean(), 1e-9)
}

func TestObservationStat_ConfidenceHalfWidth_ZeroBelowTwoSamples(t *testing.T) {
	s := NewObservationStat(0)
	s.Record(1, 5)
	assert.Equal(t, 0.0, s.ConfidenceHalfWidth95())
}

func TestTCritical95_LookupTableBuckets(t *testing.T) {
	assert.Equal(t, 2.571, TCritical95(5))
	assert.Equal(t, 2.228, TCritical95(10))
	assert.Equal(t, 2.086, TCritical95(20))
	assert.Equal(t, 2.042, TCritical95(30))
	assert.Equal(t, 1.960, TCritical95(31))
	assert.Equal(t, 1.960, TCritical95(1000))
}
