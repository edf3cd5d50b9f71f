package sim

// StationTimestamps records the monotonic timestamp quartet a single
// entity accumulates at one station: enqueue <= dequeue <= start <= end.
// Fields are left at their zero value until the corresponding
// transition occurs.
type StationTimestamps struct {
	EnqueueTime      float64
	DequeueTime      float64
	ProcessStartTime float64
	ProcessEndTime   float64
}

// EntityAttributes is the typed struct of known scheduling-rule inputs:
// scheduling-rule math reads from these typed fields, not a generic
// map. Extension carries anything a custom event handler wants to
// stash per-entity without widening this struct.
type EntityAttributes struct {
	Priority          int     // higher = served first under PRIORITY/PRIORITY_BASED
	DueDate           float64 // absolute simulated time the entity is due
	ExpectedProcessing float64 // expected remaining processing time, for SPT/LPT/SLACK/CR
	Extension         map[string]any
}

// Entity is an opaque work item flowing through the station network.
// The engine owns an arena of entities; all cross-references from
// events/stations are the integer ID below rather than a
// language-level pointer cycle.
type Entity struct {
	ID           int
	CreationTime float64
	Completed    bool
	ExitTime     float64
	Rejected     bool

	// Timestamps maps station id -> the timestamp quartet recorded at
	// that station. A station appears here once the entity has been
	// enqueued there or has started processing there.
	Timestamps map[string]*StationTimestamps

	Attributes EntityAttributes
}

// newEntity allocates a fresh Entity for id at creation time t.
func newEntity(id int, t float64) *Entity {
	return &Entity{
		ID:           id,
		CreationTime: t,
		Timestamps:   make(map[string]*StationTimestamps),
		Attributes:   EntityAttributes{ExpectedProcessing: -1},
	}
}

// timestampsFor returns (creating if necessary) the timestamp quartet for
// stationID.
func (e *Entity) timestampsFor(stationID string) *StationTimestamps {
	ts, ok := e.Timestamps[stationID]
	if !ok {
		ts = &StationTimestamps{}
		e.Timestamps[stationID] = ts
	}
	return ts
}

// ValueAddedTime sums end-start across every station the entity visited,
// counting only stations where processing actually started and ended.
func (e *Entity) ValueAddedTime() float64 {
	var total float64
	for _, ts := range e.Timestamps {
		if ts.ProcessEndTime > 0 || ts.ProcessStartTime > 0 {
			total += ts.ProcessEndTime - ts.ProcessStartTime
		}
	}
	return total
}

// CycleTime returns ExitTime - CreationTime; only meaningful once
// Completed is true.
func (e *Entity) CycleTime() float64 {
	return e.ExitTime - e.CreationTime
}

// WaitTime returns the portion of cycle time that was not value-added
// (queueing plus blocking).
func (e *Entity) WaitTime() float64 {
	return e.CycleTime() - e.ValueAddedTime()
}
