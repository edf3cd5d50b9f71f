package sim

import (
	"fmt"
	"math/rand"
)

// RoutingDecision is the outcome of selecting among parallel downstream
// stations: the chosen station id plus a short reason string for
// observability.
type RoutingDecision struct {
	StationID string
	Reason    string
}

// roundRobinState tracks the per-resource-set counter ROUND_ROBIN needs;
// one instance is shared by every station routing into the same
// candidate list (the same ids in the same order).
type roundRobinState struct {
	next int
}

// SelectDownstream applies rule to choose one of candidates (station ids)
// for entity at simulated time now. stations supplies station lookups for
// rules that need queue length or utilization; rng supplies randomness
// for RANDOM/WEIGHTED_RANDOM; rr is the round-robin counter to use/advance
// for ROUND_ROBIN (pass a distinct *roundRobinState per candidate set).
func SelectDownstream(
	rule RoutingRule,
	candidates []string,
	stations map[string]*Station,
	weights map[string]float64,
	entity *Entity,
	now float64,
	rng *rand.Rand,
	rr *roundRobinState,
) (RoutingDecision, error) {
	if len(candidates) == 0 {
		return RoutingDecision{}, fmt.Errorf("%w: no downstream candidates", ErrUnknownStation)
	}
	if len(candidates) == 1 {
		return RoutingDecision{StationID: candidates[0], Reason: "only candidate"}, nil
	}

	switch rule {
	case RouteRandom:
		idx := rng.Intn(len(candidates))
		return RoutingDecision{StationID: candidates[idx], Reason: "random draw"}, nil

	case RouteShortestQueue:
		best := candidates[0]
		bestLen := stations[best].QueueLen()
		for _, c := range candidates[1:] {
			if l := stations[c].QueueLen(); l < bestLen {
				best, bestLen = c, l
			}
		}
		return RoutingDecision{StationID: best, Reason: fmt.Sprintf("shortest queue (%d)", bestLen)}, nil

	case RouteLeastUtilized:
		best := candidates[0]
		bestUtil := utilizationAt(stations[best], now)
		for _, c := range candidates[1:] {
			if u := utilizationAt(stations[c], now); u < bestUtil {
				best, bestUtil = c, u
			}
		}
		return RoutingDecision{StationID: best, Reason: fmt.Sprintf("least utilized (%.3f)", bestUtil)}, nil

	case RouteRoundRobin:
		idx := rr.next % len(candidates)
		rr.next++
		return RoutingDecision{StationID: candidates[idx], Reason: fmt.Sprintf("round robin slot %d", idx)}, nil

	case RoutePriorityBased:
		// Entities with Attributes.Priority > 0 are routed to the first
		// candidate (the presumed fast/primary path); all others are
		// spread over the candidates round robin.
		if entity != nil && entity.Attributes.Priority > 0 {
			return RoutingDecision{StationID: candidates[0], Reason: "priority entity to primary station"}, nil
		}
		idx := rr.next % len(candidates)
		rr.next++
		return RoutingDecision{StationID: candidates[idx], Reason: "non-priority entity round robin"}, nil

	case RouteWeightedRandom:
		total := 0.0
		resolved := make([]float64, len(candidates))
		for i, c := range candidates {
			w, ok := weights[c]
			if !ok {
				w = 1 // missing weight defaults to 1
			}
			resolved[i] = w
			total += w
		}
		u := rng.Float64() * total
		cumulative := 0.0
		for i, w := range resolved {
			cumulative += w
			if u < cumulative {
				return RoutingDecision{StationID: candidates[i], Reason: fmt.Sprintf("weighted random (w=%.3g/%.3g)", w, total)}, nil
			}
		}
		last := len(candidates) - 1
		return RoutingDecision{StationID: candidates[last], Reason: "weighted random fallback"}, nil

	default:
		return RoutingDecision{}, fmt.Errorf("unknown routing rule %q", rule)
	}
}

// utilizationAt estimates a station's current busy fraction using the
// busy-state cumulative duration accumulated so far plus the time spent
// in the current state, divided by elapsed time since stateChangeTime
// tracking began. Stations with no elapsed history are treated as 0%
// utilized so they are preferred by LEAST_UTILIZED.
func utilizationAt(s *Station, now float64) float64 {
	busy := s.CumulativeDuration(StationBusy)
	if s.State() == StationBusy {
		busy += now - s.stateChangeTime
	}
	elapsed := now
	if elapsed <= 0 {
		return 0
	}
	return busy / elapsed
}
