package sim

import (
	"fmt"
	"sort"
)

// StationState is one of the four states a station occupies at any
// instant.
type StationState string

const (
	StationIdle    StationState = "idle"
	StationBusy    StationState = "busy"
	StationBlocked StationState = "blocked"
	StationDown    StationState = "down"
)

// queuedEntity pairs a queued entity with the order it arrived in, so
// dequeue rules that don't fully order entities (e.g. ties in SPT) can
// still fall back to FIFO arrival order.
type queuedEntity struct {
	entity *Entity
	arrivalSeq uint64
}

// Station is a capacity-limited processing resource with a finite FIFO
// (by default) queue, one of several dequeue scheduling rules, and an
// idle/busy/blocked/down state machine.
type Station struct {
	ID            string
	Capacity      int
	QueueCapacity int
	Service       Distribution
	Setup         Distribution // optional, may be nil
	MTBF          Distribution // optional, may be nil
	MTTR          Distribution // optional, may be nil
	DequeueRule   DequeueRule

	state           StationState
	busySlots       int // entities currently in service
	downSlots       int // capacity removed by a failure/session-off window
	queue           []queuedEntity
	nextArrivalSeq  uint64
	servingEntities map[int]*Entity // entity ID -> entity, for slots currently in service
	blockedEntity   *Entity         // set when state == StationBlocked

	stateChangeTime float64
	cumulative      map[StationState]float64 // accumulated duration per state
	processed       int
}

// NewStation constructs a station in the idle state with an empty queue.
func NewStation(id string, capacity, queueCapacity int, service Distribution) *Station {
	return &Station{
		ID:            id,
		Capacity:      capacity,
		QueueCapacity: queueCapacity,
		Service:       service,
		DequeueRule:   RuleFIFO,

		state:           StationIdle,
		servingEntities: make(map[int]*Entity),
		cumulative:      make(map[StationState]float64),
	}
}

// Reset restores the station to its initial idle, empty-queue state, as
// required at the start of each replication.
func (s *Station) Reset() {
	s.state = StationIdle
	s.busySlots = 0
	s.downSlots = 0
	s.queue = nil
	s.nextArrivalSeq = 0
	s.servingEntities = make(map[int]*Entity)
	s.blockedEntity = nil
	s.stateChangeTime = 0
	s.cumulative = make(map[StationState]float64)
	s.processed = 0
}

// State returns the station's current state.
func (s *Station) State() StationState { return s.state }

// QueueLen returns the number of entities currently queued.
func (s *Station) QueueLen() int { return len(s.queue) }

// Processed returns the number of entities that have completed service
// here since the last Reset.
func (s *Station) Processed() int { return s.processed }

// effectiveCapacity is Capacity minus any slots removed by a failure or
// an off-session window; it can reach zero, at which point no new
// service can be started here.
func (s *Station) effectiveCapacity() int {
	c := s.Capacity - s.downSlots
	if c < 0 {
		return 0
	}
	return c
}

// CanAccept reports whether a free service slot exists right now. A
// blocked or down station cannot accept new entities regardless of
// nominal capacity: blocking is tracked at station granularity, holding
// exactly one blocked entity at a time (see DESIGN.md for the rationale).
func (s *Station) CanAccept() bool {
	if s.state == StationBlocked || s.state == StationDown {
		return false
	}
	return s.busySlots < s.effectiveCapacity()
}

// CanEnqueue reports whether the queue has room for one more entity.
func (s *Station) CanEnqueue() bool {
	return len(s.queue) < s.QueueCapacity
}

// Enqueue appends entity to the FIFO backing queue (sort order at
// dequeue time is applied separately) and records its enqueue timestamp.
// Returns ErrQueueFull if the queue is already at capacity.
func (s *Station) Enqueue(entity *Entity, t float64) error {
	if !s.CanEnqueue() {
		return fmt.Errorf("%w: station %q", ErrQueueFull, s.ID)
	}
	s.queue = append(s.queue, queuedEntity{entity: entity, arrivalSeq: s.nextArrivalSeq})
	s.nextArrivalSeq++
	entity.timestampsFor(s.ID).EnqueueTime = t
	return nil
}

// Dequeue removes and returns the head of the queue under the station's
// configured DequeueRule, recording its dequeue timestamp. Returns nil
// if the queue is empty. Sorting happens here (at dequeue time), not at
// enqueue time, and is stable: equal-key entities keep arrival order.
func (s *Station) Dequeue(t float64) *Entity {
	if len(s.queue) == 0 {
		return nil
	}
	idx := s.selectDequeueIndex(t)
	qe := s.queue[idx]
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	qe.entity.timestampsFor(s.ID).DequeueTime = t
	return qe.entity
}

// selectDequeueIndex picks which queue slot to remove next per
// DequeueRule, using a stable sort over a copy of indices so ties
// preserve arrival order.
func (s *Station) selectDequeueIndex(now float64) int {
	n := len(s.queue)
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}

	less := func(a, b int) bool {
		ea, eb := s.queue[a].entity, s.queue[b].entity
		switch s.DequeueRule {
		case RuleLIFO:
			return s.queue[a].arrivalSeq > s.queue[b].arrivalSeq
		case RuleSPT:
			return ea.Attributes.ExpectedProcessing < eb.Attributes.ExpectedProcessing
		case RuleLPT:
			return ea.Attributes.ExpectedProcessing > eb.Attributes.ExpectedProcessing
		case RuleEDD:
			return ea.Attributes.DueDate < eb.Attributes.DueDate
		case RuleSLACK:
			return slack(ea, now) < slack(eb, now)
		case RuleCR:
			return criticalRatio(ea, now) < criticalRatio(eb, now)
		case RulePriority:
			return ea.Attributes.Priority > eb.Attributes.Priority
		default: // FIFO
			return s.queue[a].arrivalSeq < s.queue[b].arrivalSeq
		}
	}
	sort.SliceStable(idxs, func(i, j int) bool { return less(idxs[i], idxs[j]) })
	return idxs[0]
}

func slack(e *Entity, now float64) float64 {
	return e.Attributes.DueDate - now - e.Attributes.ExpectedProcessing
}

func criticalRatio(e *Entity, now float64) float64 {
	remaining := e.Attributes.DueDate - now
	if e.Attributes.ExpectedProcessing <= 0 {
		return remaining
	}
	return remaining / e.Attributes.ExpectedProcessing
}

// StartProcessing reserves a service slot for entity, recording its
// process-start timestamp. Precondition: CanAccept(). Transitions the
// station toward busy (idle -> busy, or remains busy with another slot
// occupied).
func (s *Station) StartProcessing(entity *Entity, t float64) {
	s.transitionIfNeeded(StationBusy, t)
	s.busySlots++
	s.servingEntities[entity.ID] = entity
	entity.timestampsFor(s.ID).ProcessStartTime = t
}

// EndProcessing completes the slot occupied by entityID, records its
// process-end timestamp, increments the processed counter, and returns
// the entity. Returns nil if entityID is not currently in service here.
// The resulting station state (idle/busy/blocked) is decided by the
// caller via MaybeIdle/SetBlocked, since that depends on whether the
// entity can be discharged downstream.
func (s *Station) EndProcessing(entityID int, t float64) *Entity {
	entity, ok := s.servingEntities[entityID]
	if !ok {
		return nil
	}
	delete(s.servingEntities, entityID)
	s.busySlots--
	s.processed++
	entity.timestampsFor(s.ID).ProcessEndTime = t
	return entity
}

// SetBlocked transitions the station to blocked: it has completed
// service but cannot discharge the entity because the downstream queue
// is full. entity stays attached to its slot.
func (s *Station) SetBlocked(entity *Entity, t float64) {
	s.blockedEntity = entity
	s.transitionIfNeeded(StationBlocked, t)
}

// ClearBlocked releases a previously blocked slot once downstream makes
// room, transitioning the station back to idle, or to busy when other
// slots are still serving (the caller is responsible for immediately
// starting the next entity if one exists).
func (s *Station) ClearBlocked(t float64) *Entity {
	entity := s.blockedEntity
	s.blockedEntity = nil
	if s.busySlots == 0 {
		s.transitionIfNeeded(StationIdle, t)
	} else {
		s.transitionIfNeeded(StationBusy, t)
	}
	return entity
}

// SetIdle forces the station to the idle state regardless of busySlots.
func (s *Station) SetIdle(t float64) { s.transitionIfNeeded(StationIdle, t) }

// MaybeIdle transitions the station to idle at t only if no slot is
// still in service. A station with Capacity > 1 stays busy after one of
// several concurrently-occupied slots finishes; only the last slot to
// finish should flip the state.
func (s *Station) MaybeIdle(t float64) {
	if s.busySlots == 0 {
		s.transitionIfNeeded(StationIdle, t)
	}
}

// SetDown marks the station unavailable (failure/session-off), removing
// its entire effective capacity until SetUp is called.
func (s *Station) SetDown(t float64) {
	s.downSlots = s.Capacity
	s.transitionIfNeeded(StationDown, t)
}

// SetUp restores capacity after a failure/session-off window ends.
func (s *Station) SetUp(t float64) {
	s.downSlots = 0
	if s.busySlots > 0 {
		s.transitionIfNeeded(StationBusy, t)
	} else if s.blockedEntity != nil {
		s.transitionIfNeeded(StationBlocked, t)
	} else {
		s.transitionIfNeeded(StationIdle, t)
	}
}

// transitionIfNeeded accumulates the duration spent in the previous
// state into its cumulative bucket before switching state.
func (s *Station) transitionIfNeeded(next StationState, t float64) {
	s.accumulate(t)
	s.state = next
}

func (s *Station) accumulate(t float64) {
	if t > s.stateChangeTime {
		s.cumulative[s.state] += t - s.stateChangeTime
	}
	s.stateChangeTime = t
}

// Finalize accumulates the remaining duration in the current state up to
// t; called once when the simulation ends.
func (s *Station) Finalize(t float64) {
	s.accumulate(t)
}

// CumulativeDuration returns the accumulated time spent in state since
// the last Reset/Finalize call sequence.
func (s *Station) CumulativeDuration(state StationState) float64 {
	return s.cumulative[state]
}
