package replication

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/factorysim/des-engine/sim"
)

// aggregate computes cross-replication statistics from the raw per-
// replication results: mean, sample std. dev., 95% CI half-width, min,
// max per scalar metric; mean per-station scalars; bottleneck
// identification; and the Little's Law discrepancy check. Failed and
// timed-out replications are excluded from every computation but still
// counted in the run totals.
func aggregate(results []sim.ReplicationResult, keep bool) (*sim.SimulationResults, error) {
	var succeeded []sim.ReplicationResult
	var failedCount, timeoutCount int
	for _, r := range results {
		switch {
		case r.Failed:
			failedCount++
		case r.Timeout:
			timeoutCount++
		default:
			succeeded = append(succeeded, r)
		}
	}

	out := &sim.SimulationResults{
		ReplicationsRun:       len(results),
		ReplicationsSucceeded: len(succeeded),
		ReplicationsFailed:    failedCount,
		ReplicationsTimedOut:  timeoutCount,
	}
	if keep {
		out.Replications = results
	}

	if len(succeeded) == 0 {
		return out, sim.ErrNoSuccessfulReplications
	}

	throughput := make([]float64, len(succeeded))
	cycleTime := make([]float64, len(succeeded))
	valueAdded := make([]float64, len(succeeded))
	waitTime := make([]float64, len(succeeded))
	wip := make([]float64, len(succeeded))
	for i, r := range succeeded {
		throughput[i] = r.Throughput
		cycleTime[i] = r.CycleTime
		valueAdded[i] = r.ValueAddedTime
		waitTime[i] = r.WaitTime
		wip[i] = r.WIP
	}

	out.Throughput = summarize(throughput)
	out.CycleTime = summarize(cycleTime)
	out.ValueAddedTime = summarize(valueAdded)
	out.WaitTime = summarize(waitTime)
	out.WIP = summarize(wip)

	out.Stations = aggregateStations(succeeded)
	out.Bottleneck = identifyBottleneck(out.Stations)

	wipEstimate := out.Throughput.Mean * (out.CycleTime.Mean / 60)
	if out.WIP.Mean != 0 {
		out.LittlesLawRelativeError = math.Abs(wipEstimate-out.WIP.Mean) / out.WIP.Mean
	}
	out.LittlesLawDiscrepancy = out.LittlesLawRelativeError > 0.10

	return out, nil
}

// summarize reduces a per-replication metric vector to a MetricSummary.
// With fewer than two samples the half-width and std. dev. are zero,
// since a point estimate alone has no meaningful variance.
func summarize(values []float64) sim.MetricSummary {
	n := len(values)
	if n == 0 {
		return sim.MetricSummary{}
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	summary := sim.MetricSummary{
		Mean: stat.Mean(values, nil),
		Min:  min,
		Max:  max,
	}
	if n >= 2 {
		summary.StdDev = stat.StdDev(values, nil)
		summary.ConfidenceHalfWidth95 = sim.TCritical95(n-1) * summary.StdDev / math.Sqrt(float64(n))
	}
	return summary
}

// aggregateStations averages each per-station scalar across replications.
// Every replication shares the same configured station set, so the first
// successful replication's station ids are used as the key set.
func aggregateStations(succeeded []sim.ReplicationResult) map[string]sim.StationResult {
	stationIDs := make([]string, 0, len(succeeded[0].Stations))
	for id := range succeeded[0].Stations {
		stationIDs = append(stationIDs, id)
	}

	out := make(map[string]sim.StationResult, len(stationIDs))
	for _, id := range stationIDs {
		var util, queue, blocked, idle, processed []float64
		for _, r := range succeeded {
			st, ok := r.Stations[id]
			if !ok {
				continue
			}
			util = append(util, st.Utilization)
			queue = append(queue, st.AverageQueueLength)
			blocked = append(blocked, st.BlockedTimeFraction)
			idle = append(idle, st.IdleTimeFraction)
			processed = append(processed, float64(st.PartsProcessed))
		}
		out[id] = sim.StationResult{
			Utilization:         meanOf(util),
			AverageQueueLength:  meanOf(queue),
			BlockedTimeFraction: meanOf(blocked),
			IdleTimeFraction:    meanOf(idle),
			PartsProcessed:      int(math.Round(meanOf(processed))),
		}
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// identifyBottleneck picks the station with the highest mean utilization
// and assigns a severity bucket via SeverityFor's thresholds.
func identifyBottleneck(stations map[string]sim.StationResult) sim.BottleneckResult {
	best := sim.BottleneckResult{Utilization: -1}
	for id, st := range stations {
		if st.Utilization > best.Utilization {
			best = sim.BottleneckResult{
				StationID:           id,
				Utilization:         st.Utilization,
				MeanQueueLength:     st.AverageQueueLength,
				BlockedTimeFraction: st.BlockedTimeFraction,
			}
		}
	}
	best.Severity = sim.SeverityFor(best.Utilization)
	return best
}
