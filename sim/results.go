package sim

// MetricSummary is the scalar statistical summary attached to every
// aggregated metric in a SimulationResults.
type MetricSummary struct {
	Mean                  float64 `json:"mean"`
	StdDev                float64 `json:"std_dev"`
	ConfidenceHalfWidth95 float64 `json:"confidence_half_width"`
	Min                   float64 `json:"min"`
	Max                   float64 `json:"max"`
}

// StationResult is the per-station scalar summary for one replication, or
// the cross-replication mean of those scalars once aggregated.
type StationResult struct {
	Utilization         float64 `json:"utilization"`
	AverageQueueLength   float64 `json:"average_queue"`
	BlockedTimeFraction  float64 `json:"blocked_time_fraction"`
	PartsProcessed       int     `json:"parts_processed"`
	IdleTimeFraction     float64 `json:"idle_time_fraction"`
}

// BottleneckResult identifies the highest-utilization station across
// replications and its severity bucket.
type BottleneckResult struct {
	StationID           string  `json:"station_id"`
	Utilization         float64 `json:"utilization"`
	MeanQueueLength     float64 `json:"mean_queue_length"`
	BlockedTimeFraction float64 `json:"blocked_time_fraction"`
	Severity            string  `json:"severity"` // "high", "medium", "low"
}

// Severity thresholds for bottleneck identification.
const (
	bottleneckHighThreshold   = 0.95
	bottleneckMediumThreshold = 0.85
)

// SeverityFor buckets a utilization value into the bottleneck severity
// scale (thresholds 0.95 / 0.85), exported so the replication aggregator
// uses the same thresholds as this package.
func SeverityFor(utilization float64) string {
	switch {
	case utilization >= bottleneckHighThreshold:
		return "high"
	case utilization >= bottleneckMediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// ReplicationResult is the point-value result of a single replication,
// computed exclusively from post-warm-up observations.
type ReplicationResult struct {
	Index int `json:"index"`

	Throughput     float64 `json:"throughput"`      // parts/hour
	CycleTime      float64 `json:"cycle_time"`      // minutes
	ValueAddedTime float64 `json:"value_added_time"` // minutes
	WaitTime       float64 `json:"wait_time"`       // minutes
	WIP            float64 `json:"wip"`

	Stations map[string]StationResult `json:"stations"`

	EntitiesCreated   int `json:"entities_created"`
	EntitiesCompleted int `json:"entities_completed"`
	EntitiesRejected  int `json:"entities_rejected"`

	Failed  bool   `json:"failed,omitempty"`
	Timeout bool   `json:"timeout,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// Result computes this replication's point-value result from the engine's
// current (post-end-of-simulation, i.e. finalized) state. Call after
// Run() returns successfully.
func (e *Engine) Result(index int) ReplicationResult {
	observedMinutes := e.Clock - e.Warmup
	var throughput float64
	if observedMinutes > 0 {
		throughput = float64(e.CycleTime.Count()) / observedMinutes * 60
	}

	stations := make(map[string]StationResult, len(e.Stations))
	for id, st := range e.Stations {
		elapsed := e.Clock - e.Warmup
		var idleFrac, blockedFrac float64
		if elapsed > 0 {
			idleFrac = st.CumulativeDuration(StationIdle) / elapsed
			blockedFrac = e.StationBlockedFrac[id].Mean(e.Clock)
		}
		stations[id] = StationResult{
			Utilization:         e.StationUtilization[id].Mean(e.Clock),
			AverageQueueLength:  e.StationQueueLength[id].Mean(e.Clock),
			BlockedTimeFraction: blockedFrac,
			PartsProcessed:      st.Processed(),
			IdleTimeFraction:    idleFrac,
		}
	}

	return ReplicationResult{
		Index:             index,
		Throughput:        throughput,
		CycleTime:         e.CycleTime.Mean(),
		ValueAddedTime:    e.ValueAddedTime.Mean(),
		WaitTime:          e.WaitTime.Mean(),
		WIP:               e.WIP.Mean(e.Clock),
		Stations:          stations,
		EntitiesCreated:   e.EntitiesCreated,
		EntitiesCompleted: e.EntitiesCompleted,
		EntitiesRejected:  e.EntitiesRejected,
	}
}

// SimulationResults is the aggregated, cross-replication output of a
// full simulation run.
type SimulationResults struct {
	Throughput     MetricSummary `json:"throughput"`
	CycleTime      MetricSummary `json:"cycle_time"`
	ValueAddedTime MetricSummary `json:"value_added_time"`
	WaitTime       MetricSummary `json:"wait_time"`
	WIP            MetricSummary `json:"wip"`

	Stations map[string]StationResult `json:"stations"`

	Bottleneck BottleneckResult `json:"bottleneck"`

	LittlesLawDiscrepancy      bool    `json:"littles_law_discrepancy"`
	LittlesLawRelativeError    float64 `json:"littles_law_relative_error"`

	ReplicationsRun       int `json:"replications_run"`
	ReplicationsSucceeded int `json:"replications_succeeded"`
	ReplicationsFailed    int `json:"replications_failed"`
	ReplicationsTimedOut  int `json:"replications_timed_out"`

	Replications []ReplicationResult `json:"replications,omitempty"`
}
