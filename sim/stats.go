package sim

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tStatTable holds the 95%-confidence Student's t critical values keyed
// by the upper bound of the degrees-of-freedom bucket they apply to.
// Buckets are checked in ascending order; anything above the largest
// bucket uses the normal approximation.
var tStatTable = []struct {
	maxDF int
	t     float64
}{
	{5, 2.571},
	{10, 2.228},
	{20, 2.086},
	{30, 2.042},
}

const tStatNormalApprox = 1.960

// TCritical95 returns t(0.95, df) from the small lookup table above,
// exported so the replication aggregator can compute cross-replication
// confidence half-widths with the same table.
func TCritical95(df int) float64 {
	return tCritical95(df)
}

// tCritical95 returns t(0.95, df) from the small lookup table above.
func tCritical95(df int) float64 {
	for _, bucket := range tStatTable {
		if df <= bucket.maxDF {
			return bucket.t
		}
	}
	return tStatNormalApprox
}

// TimeWeightedStat integrates a piecewise-constant signal over simulated
// time, gated by a warm-up time: observations before clock >= warmup are
// dropped from the integral.
type TimeWeightedStat struct {
	warmup      float64
	started     bool
	lastValue   float64
	lastTime    float64
	area        float64
	finalized   bool
	finalTime   float64
}

// NewTimeWeightedStat creates a collector that starts integrating once
// the clock reaches warmup.
func NewTimeWeightedStat(warmup float64) *TimeWeightedStat {
	return &TimeWeightedStat{warmup: warmup, lastTime: warmup}
}

// Reset clears all accumulated state, as required between replications.
func (s *TimeWeightedStat) Reset() {
	*s = TimeWeightedStat{warmup: s.warmup, lastTime: s.warmup}
}

// Update integrates lastValue * (time - lastTime) into the area and
// then records newValue as the new last value. Updates before the
// warm-up boundary are tracked (so the post-warm-up starting value is
// correct) but contribute no area.
func (s *TimeWeightedStat) Update(time, newValue float64) {
	if time < s.warmup {
		s.lastValue = newValue
		return
	}
	if !s.started {
		s.started = true
		s.lastTime = s.warmup
	}
	if time > s.lastTime {
		s.area += s.lastValue * (time - s.lastTime)
	}
	s.lastValue = newValue
	s.lastTime = time
}

// Finalize holds the current value until currentTime, integrating the
// final interval, as required at replication end.
func (s *TimeWeightedStat) Finalize(currentTime float64) {
	if currentTime > s.lastTime {
		s.area += s.lastValue * (currentTime - s.lastTime)
		s.lastTime = currentTime
	}
	s.finalized = true
	s.finalTime = currentTime
}

// Mean returns area / (currentTime - warmup). Callers should pass the
// same currentTime used in the last Update/Finalize call once the
// collector has been finalized.
func (s *TimeWeightedStat) Mean(currentTime float64) float64 {
	denom := currentTime - s.warmup
	if denom <= 0 {
		return 0
	}
	return s.area / denom
}

// ObservationStat stores a growing vector of post-warm-up samples, used
// for discrete per-entity measurements such as cycle time.
type ObservationStat struct {
	warmup  float64
	samples []float64
}

// NewObservationStat creates a collector gated by warmup.
func NewObservationStat(warmup float64) *ObservationStat {
	return &ObservationStat{warmup: warmup}
}

// Reset clears all recorded samples.
func (s *ObservationStat) Reset() {
	s.samples = nil
}

// Record appends value if time >= warmup; observations before warm-up
// are silently dropped.
func (s *ObservationStat) Record(time, value float64) {
	if time < s.warmup {
		return
	}
	s.samples = append(s.samples, value)
}

// Count returns the number of recorded samples.
func (s *ObservationStat) Count() int { return len(s.samples) }

// Mean returns the sample mean, or 0 for an empty collector.
func (s *ObservationStat) Mean() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return stat.Mean(s.samples, nil)
}

// PopulationStdDev returns the population standard deviation (divisor N).
func (s *ObservationStat) PopulationStdDev() float64 {
	n := len(s.samples)
	if n == 0 {
		return 0
	}
	mean := s.Mean()
	var sumSq float64
	for _, v := range s.samples {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// SampleStdDev returns the sample standard deviation (divisor N-1), or 0
// when fewer than two samples are present.
func (s *ObservationStat) SampleStdDev() float64 {
	if len(s.samples) < 2 {
		return 0
	}
	return stat.StdDev(s.samples, nil)
}

// Min returns the minimum recorded sample, or 0 for an empty collector.
func (s *ObservationStat) Min() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	min := s.samples[0]
	for _, v := range s.samples[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the maximum recorded sample, or 0 for an empty collector.
func (s *ObservationStat) Max() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	max := s.samples[0]
	for _, v := range s.samples[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Percentile returns the p-th percentile (0 <= p <= 100) over a sorted
// copy of the recorded samples, via gonum's quantile estimator.
func (s *ObservationStat) Percentile(p float64) float64 {
	if len(s.samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.samples))
	copy(sorted, s.samples)
	sort.Float64s(sorted)
	return stat.Quantile(p/100.0, stat.Empirical, sorted, nil)
}

// ConfidenceHalfWidth95 returns the 95% confidence half-width
// t(0.95, n-1) * s / sqrt(n), using the lookup table above. Returns 0
// for fewer than two samples.
func (s *ObservationStat) ConfidenceHalfWidth95() float64 {
	n := len(s.samples)
	if n < 2 {
		return 0
	}
	t := tCritical95(n - 1)
	return t * s.SampleStdDev() / math.Sqrt(float64(n))
}
