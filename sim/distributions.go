package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Distribution samples non-negative durations from an RNG stream and
// reports its analytical mean/stddev for validation against measured
// sample statistics.
type Distribution interface {
	Sample(rng *rand.Rand) float64
	Mean() float64
	StdDev() float64
}

// --- Constant ---------------------------------------------------------

// ConstantDistribution always returns the same non-negative value.
type ConstantDistribution struct{ value float64 }

// NewConstantDistribution validates value >= 0.
func NewConstantDistribution(value float64) (*ConstantDistribution, error) {
	if value < 0 {
		return nil, fmt.Errorf("%w: constant value %.6g must be >= 0", ErrInvalidDistributionParams, value)
	}
	return &ConstantDistribution{value: value}, nil
}

func (d *ConstantDistribution) Sample(_ *rand.Rand) float64 { return d.value }
func (d *ConstantDistribution) Mean() float64                { return d.value }
func (d *ConstantDistribution) StdDev() float64              { return 0 }

// --- Uniform ------------------------------------------------------------

// UniformDistribution samples uniformly over [min, max).
type UniformDistribution struct{ min, max float64 }

// NewUniformDistribution validates 0 <= min < max.
func NewUniformDistribution(min, max float64) (*UniformDistribution, error) {
	if min < 0 || min >= max {
		return nil, fmt.Errorf("%w: uniform requires 0 <= min < max, got min=%.6g max=%.6g", ErrInvalidDistributionParams, min, max)
	}
	return &UniformDistribution{min: min, max: max}, nil
}

func (d *UniformDistribution) Sample(rng *rand.Rand) float64 {
	return d.min + rng.Float64()*(d.max-d.min)
}
func (d *UniformDistribution) Mean() float64 { return (d.min + d.max) / 2 }
func (d *UniformDistribution) StdDev() float64 {
	return (d.max - d.min) / math.Sqrt(12)
}

// --- Exponential ----------------------------------------------------------

// ExponentialDistribution samples an exponential duration with the given
// mean via inverse-CDF: -mean * ln(1-U).
type ExponentialDistribution struct{ mean float64 }

// NewExponentialDistribution validates mean > 0.
func NewExponentialDistribution(mean float64) (*ExponentialDistribution, error) {
	if mean <= 0 {
		return nil, fmt.Errorf("%w: exponential mean %.6g must be > 0", ErrInvalidDistributionParams, mean)
	}
	return &ExponentialDistribution{mean: mean}, nil
}

func (d *ExponentialDistribution) Sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	return -d.mean * math.Log(1-u)
}
func (d *ExponentialDistribution) Mean() float64   { return d.mean }
func (d *ExponentialDistribution) StdDev() float64 { return d.mean }

// --- Normal (truncated at 0) ----------------------------------------------

// NormalDistribution samples a Gaussian(mu, sigma) via Box-Muller, clamped
// to 0 when negative: service times must be non-negative, so the sample
// is re-clamped, never negated.
type NormalDistribution struct {
	mu, sigma float64
	haveSpare bool
	spare     float64
}

// NewNormalDistribution validates sigma >= 0.
func NewNormalDistribution(mu, sigma float64) (*NormalDistribution, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("%w: normal sigma %.6g must be >= 0", ErrInvalidDistributionParams, sigma)
	}
	return &NormalDistribution{mu: mu, sigma: sigma}, nil
}

func (d *NormalDistribution) Sample(rng *rand.Rand) float64 {
	if d.sigma == 0 {
		return math.Max(0, d.mu)
	}
	z := boxMuller(rng)
	val := d.mu + d.sigma*z
	if val < 0 {
		return 0
	}
	return val
}

// boxMuller returns one standard-normal deviate per call using the
// polar-free Box-Muller transform. Each pair of uniforms yields two
// deviates, but a fresh pair is drawn every call rather than caching the
// second value, keeping the RNG draw count per Sample() call fixed.
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	u2 := rng.Float64()
	if u1 <= 0 {
		u1 = math.SmallestNonzeroFloat64
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func (d *NormalDistribution) Mean() float64   { return d.mu }
func (d *NormalDistribution) StdDev() float64 { return d.sigma }

// --- Triangular -----------------------------------------------------------

// TriangularDistribution samples Triangular(min, mode, max) via the
// inverse-CDF split at F = (mode-min)/(max-min).
type TriangularDistribution struct{ min, mode, max float64 }

// NewTriangularDistribution validates min <= mode <= max.
func NewTriangularDistribution(min, mode, max float64) (*TriangularDistribution, error) {
	if !(min <= mode && mode <= max) {
		return nil, fmt.Errorf("%w: triangular requires min <= mode <= max, got min=%.6g mode=%.6g max=%.6g", ErrInvalidDistributionParams, min, mode, max)
	}
	return &TriangularDistribution{min: min, mode: mode, max: max}, nil
}

func (d *TriangularDistribution) Sample(rng *rand.Rand) float64 {
	if d.min == d.max {
		return d.min
	}
	u := rng.Float64()
	f := (d.mode - d.min) / (d.max - d.min)
	if u < f {
		return d.min + math.Sqrt(u*(d.max-d.min)*(d.mode-d.min))
	}
	return d.max - math.Sqrt((1-u)*(d.max-d.min)*(d.max-d.mode))
}

func (d *TriangularDistribution) Mean() float64 { return (d.min + d.mode + d.max) / 3 }
func (d *TriangularDistribution) StdDev() float64 {
	a, b, c := d.min, d.mode, d.max
	variance := (a*a + b*b + c*c - a*b - a*c - b*c) / 18
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// --- PERT -------------------------------------------------------------------

// PERTDistribution samples a Beta(alpha, beta) distribution scaled onto
// [min, max], with alpha=1+4*mu, beta=1+4*(1-mu), mu=(mode-min)/(max-min).
// Beta is sampled via the gamma ratio X/(X+Y), and each gamma deviate via
// Marsaglia-Tsang.
type PERTDistribution struct {
	min, mode, max float64
	alpha, beta    float64
}

// NewPERTDistribution validates min <= mode <= max.
func NewPERTDistribution(min, mode, max float64) (*PERTDistribution, error) {
	if !(min <= mode && mode <= max) {
		return nil, fmt.Errorf("%w: pert requires min <= mode <= max, got min=%.6g mode=%.6g max=%.6g", ErrInvalidDistributionParams, min, mode, max)
	}
	mu := 0.5
	if max > min {
		mu = (mode - min) / (max - min)
	}
	return &PERTDistribution{
		min: min, mode: mode, max: max,
		alpha: 1 + 4*mu,
		beta:  1 + 4*(1-mu),
	}, nil
}

func (d *PERTDistribution) Sample(rng *rand.Rand) float64 {
	if d.min == d.max {
		return d.min
	}
	x := sampleGamma(rng, d.alpha, 1)
	y := sampleGamma(rng, d.beta, 1)
	frac := x / (x + y)
	return d.min + frac*(d.max-d.min)
}

func (d *PERTDistribution) Mean() float64 {
	return (d.min + 4*d.mode + d.max) / 6
}
func (d *PERTDistribution) StdDev() float64 {
	ab := d.alpha + d.beta
	return (d.max - d.min) * math.Sqrt(d.alpha*d.beta/(ab*ab*(ab+1)))
}

// sampleGamma draws a Gamma(shape, scale) deviate via the Marsaglia-Tsang
// method. shape must be > 0; for shape < 1 the boost trick (Gamma(a) =
// Gamma(a+1) * U^(1/a)) is applied.
func sampleGamma(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		if u <= 0 {
			u = math.SmallestNonzeroFloat64
		}
		return sampleGamma(rng, shape+1, scale) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = boxMuller(rng)
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// --- Poisson ----------------------------------------------------------------

// PoissonDistribution samples an arrival-count-style non-negative integer
// duration via Knuth's product method. Used where a Poisson-distributed
// duration (rather than count) is requested by configuration; the sampled
// integer is returned as a float64 duration.
type PoissonDistribution struct{ lambda float64 }

// NewPoissonDistribution validates lambda > 0.
func NewPoissonDistribution(lambda float64) (*PoissonDistribution, error) {
	if lambda <= 0 {
		return nil, fmt.Errorf("%w: poisson lambda %.6g must be > 0", ErrInvalidDistributionParams, lambda)
	}
	return &PoissonDistribution{lambda: lambda}, nil
}

func (d *PoissonDistribution) Sample(rng *rand.Rand) float64 {
	l := math.Exp(-d.lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			break
		}
	}
	return float64(k - 1)
}

func (d *PoissonDistribution) Mean() float64   { return d.lambda }
func (d *PoissonDistribution) StdDev() float64 { return math.Sqrt(d.lambda) }

// --- Discrete -----------------------------------------------------------

// DiscreteDistribution samples one of a fixed set of non-negative values
// according to a probability weight per value, via inverse-CDF over the
// cumulative distribution.
type DiscreteDistribution struct {
	values []float64
	cdf    []float64
}

// NewDiscreteDistribution validates that values and probabilities have
// equal, non-zero length, every probability is >= 0, and the sum deviates
// from 1 by no more than 1e-6; probabilities are rejected rather than
// silently renormalized.
func NewDiscreteDistribution(values []float64, probabilities []float64) (*DiscreteDistribution, error) {
	if len(values) == 0 || len(values) != len(probabilities) {
		return nil, fmt.Errorf("%w: discrete requires equal-length, non-empty values and probabilities", ErrInvalidDistributionParams)
	}
	sum := 0.0
	for _, p := range probabilities {
		if p < 0 {
			return nil, fmt.Errorf("%w: discrete probability %.6g must be >= 0", ErrInvalidDistributionParams, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("%w: discrete probabilities sum to %.6g, want 1 (+/- 1e-6)", ErrInvalidDistributionParams, sum)
	}

	cdf := make([]float64, len(probabilities))
	cumulative := 0.0
	for i, p := range probabilities {
		cumulative += p
		cdf[i] = cumulative
	}
	cdf[len(cdf)-1] = 1.0

	vals := make([]float64, len(values))
	copy(vals, values)
	return &DiscreteDistribution{values: vals, cdf: cdf}, nil
}

func (d *DiscreteDistribution) Sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	idx := sort.SearchFloat64s(d.cdf, u)
	if idx >= len(d.values) {
		idx = len(d.values) - 1
	}
	return d.values[idx]
}

func (d *DiscreteDistribution) Mean() float64 {
	mean := 0.0
	prev := 0.0
	for i, v := range d.values {
		p := d.cdf[i] - prev
		mean += v * p
		prev = d.cdf[i]
	}
	return mean
}

func (d *DiscreteDistribution) StdDev() float64 {
	mean := d.Mean()
	variance := 0.0
	prev := 0.0
	for i, v := range d.values {
		p := d.cdf[i] - prev
		variance += p * (v - mean) * (v - mean)
		prev = d.cdf[i]
	}
	return math.Sqrt(variance)
}
