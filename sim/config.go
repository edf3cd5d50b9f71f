package sim

import "fmt"

// ProcessTimeConfig describes a distribution to sample a duration from,
// as it would be decoded from the Processes/Arrivals tables or a YAML
// config file.
type ProcessTimeConfig struct {
	Distribution  string    `yaml:"distribution"`
	Mean          *float64  `yaml:"mean,omitempty"`
	StdDev        *float64  `yaml:"stddev,omitempty"`
	Min           *float64  `yaml:"min,omitempty"`
	Mode          *float64  `yaml:"mode,omitempty"`
	Max           *float64  `yaml:"max,omitempty"`
	Rate          *float64  `yaml:"rate,omitempty"`
	Value         *float64  `yaml:"value,omitempty"`
	Probabilities []float64 `yaml:"probabilities,omitempty"`
	Values        []float64 `yaml:"values,omitempty"`
}

func requireField(name string, v *float64) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: %q distribution requires field %q", ErrInvalidDistributionParams, name, name)
	}
	return *v, nil
}

// NewDistribution constructs the Distribution named by cfg.Distribution,
// validating its parameters. Unknown distribution names and missing
// required fields both produce ErrInvalidDistributionParams.
func (cfg ProcessTimeConfig) NewDistribution() (Distribution, error) {
	switch cfg.Distribution {
	case "constant":
		v, err := requireField("value", cfg.Value)
		if err != nil {
			return nil, err
		}
		return NewConstantDistribution(v)

	case "uniform":
		min, err := requireField("min", cfg.Min)
		if err != nil {
			return nil, err
		}
		max, err := requireField("max", cfg.Max)
		if err != nil {
			return nil, err
		}
		return NewUniformDistribution(min, max)

	case "exponential":
		mean, err := requireField("mean", cfg.Mean)
		if err != nil {
			return nil, err
		}
		return NewExponentialDistribution(mean)

	case "normal":
		mean, err := requireField("mean", cfg.Mean)
		if err != nil {
			return nil, err
		}
		stddev, err := requireField("stddev", cfg.StdDev)
		if err != nil {
			return nil, err
		}
		return NewNormalDistribution(mean, stddev)

	case "triangular":
		min, err := requireField("min", cfg.Min)
		if err != nil {
			return nil, err
		}
		mode, err := requireField("mode", cfg.Mode)
		if err != nil {
			return nil, err
		}
		max, err := requireField("max", cfg.Max)
		if err != nil {
			return nil, err
		}
		return NewTriangularDistribution(min, mode, max)

	case "pert":
		min, err := requireField("min", cfg.Min)
		if err != nil {
			return nil, err
		}
		mode, err := requireField("mode", cfg.Mode)
		if err != nil {
			return nil, err
		}
		max, err := requireField("max", cfg.Max)
		if err != nil {
			return nil, err
		}
		return NewPERTDistribution(min, mode, max)

	case "poisson":
		rate, err := requireField("rate", cfg.Rate)
		if err != nil {
			return nil, err
		}
		return NewPoissonDistribution(rate)

	case "discrete":
		if len(cfg.Values) == 0 {
			return nil, fmt.Errorf("%w: discrete distribution requires \"values\"", ErrInvalidDistributionParams)
		}
		return NewDiscreteDistribution(cfg.Values, cfg.Probabilities)

	default:
		return nil, fmt.Errorf("%w: unknown distribution %q", ErrInvalidDistributionParams, cfg.Distribution)
	}
}

// DequeueRule names a station's queue discipline, applied at dequeue
// time rather than enqueue time.
type DequeueRule string

const (
	RuleFIFO     DequeueRule = "FIFO"
	RuleLIFO     DequeueRule = "LIFO"
	RuleSPT      DequeueRule = "SPT"
	RuleLPT      DequeueRule = "LPT"
	RuleEDD      DequeueRule = "EDD"
	RuleSLACK    DequeueRule = "SLACK"
	RuleCR       DequeueRule = "CR"
	RulePriority DequeueRule = "PRIORITY"
)

// RoutingRule names a rule for selecting among parallel downstream
// stations.
type RoutingRule string

const (
	RouteRandom          RoutingRule = "RANDOM"
	RouteShortestQueue    RoutingRule = "SHORTEST_QUEUE"
	RouteLeastUtilized    RoutingRule = "LEAST_UTILIZED"
	RouteRoundRobin       RoutingRule = "ROUND_ROBIN"
	RoutePriorityBased    RoutingRule = "PRIORITY_BASED"
	RouteWeightedRandom   RoutingRule = "WEIGHTED_RANDOM"
)

// MachineConfig describes one station in the flow.
type MachineConfig struct {
	ID            string            `yaml:"id"`
	Type          string            `yaml:"type"`
	Capacity      int               `yaml:"capacity"`
	QueueCapacity int               `yaml:"queue_capacity"`
	Service       ProcessTimeConfig `yaml:"service"`
	Setup         *ProcessTimeConfig `yaml:"setup,omitempty"`
	MTBF          *ProcessTimeConfig `yaml:"mtbf,omitempty"`
	MTTR          *ProcessTimeConfig `yaml:"mttr,omitempty"`
	DequeueRule   DequeueRule       `yaml:"dequeue_rule,omitempty"`
	DownstreamIDs []string          `yaml:"downstream,omitempty"`
	Routing       RoutingRule       `yaml:"routing,omitempty"`
	RouteWeights  map[string]float64 `yaml:"route_weights,omitempty"`
}

// SimulationConfig is the top-level input to a simulation run.
type SimulationConfig struct {
	Machines        []MachineConfig   `yaml:"machines"`
	Flow            []string          `yaml:"flow"`
	Arrival         ProcessTimeConfig `yaml:"arrival"`
	SimulationTime  float64           `yaml:"simulation_time"`
	WarmupTime      float64           `yaml:"warmup_time"`
	Replications    int               `yaml:"replications"`
	BaseSeed        int64             `yaml:"base_seed"`
}

// Validate checks every field of cfg and returns a *ConfigValidationError
// collecting every problem found, rather than failing on the first one.
// A nil return means cfg is fully valid.
func (cfg *SimulationConfig) Validate() error {
	var problems []string

	ids := make(map[string]bool, len(cfg.Machines))
	for _, m := range cfg.Machines {
		if m.ID == "" {
			problems = append(problems, "machine with empty id")
			continue
		}
		if ids[m.ID] {
			problems = append(problems, fmt.Sprintf("duplicate machine id %q", m.ID))
		}
		ids[m.ID] = true
		if m.Capacity < 1 {
			problems = append(problems, fmt.Sprintf("machine %q: capacity must be >= 1", m.ID))
		}
		if m.QueueCapacity < 0 {
			problems = append(problems, fmt.Sprintf("machine %q: queue_capacity must be >= 0", m.ID))
		}
		if _, err := m.Service.NewDistribution(); err != nil {
			problems = append(problems, fmt.Sprintf("machine %q: service distribution: %v", m.ID, err))
		}
		if m.Setup != nil {
			if _, err := m.Setup.NewDistribution(); err != nil {
				problems = append(problems, fmt.Sprintf("machine %q: setup distribution: %v", m.ID, err))
			}
		}
		if m.MTBF != nil {
			if _, err := m.MTBF.NewDistribution(); err != nil {
				problems = append(problems, fmt.Sprintf("machine %q: mtbf distribution: %v", m.ID, err))
			}
		}
		if m.MTTR != nil {
			if _, err := m.MTTR.NewDistribution(); err != nil {
				problems = append(problems, fmt.Sprintf("machine %q: mttr distribution: %v", m.ID, err))
			}
		}
	}

	for _, id := range cfg.Flow {
		if !ids[id] {
			problems = append(problems, fmt.Sprintf("%v: flow references unknown station %q", ErrUnknownStation, id))
		}
	}
	for _, m := range cfg.Machines {
		for _, d := range m.DownstreamIDs {
			if !ids[d] {
				problems = append(problems, fmt.Sprintf("%v: machine %q routes to unknown station %q", ErrUnknownStation, m.ID, d))
			}
		}
	}

	if _, err := cfg.Arrival.NewDistribution(); err != nil {
		problems = append(problems, fmt.Sprintf("arrival distribution: %v", err))
	}
	if cfg.SimulationTime <= 0 {
		problems = append(problems, "simulation_time must be > 0")
	}
	if cfg.WarmupTime < 0 {
		problems = append(problems, "warmup_time must be >= 0")
	}
	if cfg.WarmupTime > cfg.SimulationTime {
		problems = append(problems, "warmup_time must not exceed simulation_time")
	}
	if cfg.Replications < 1 {
		problems = append(problems, "replications must be >= 1")
	}

	if len(problems) == 0 {
		return nil
	}
	return &ConfigValidationError{Problems: problems}
}
