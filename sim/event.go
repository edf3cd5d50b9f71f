package sim

// EventKind enumerates the tagged variants an Event can carry. Each event
// type carries a variant-specific typed payload rather than a generic
// attribute bag.
type EventKind string

const (
	EventArrival         EventKind = "ARRIVAL"
	EventStartService    EventKind = "START_SERVICE"
	EventEndService       EventKind = "END_SERVICE"
	EventEndTravel        EventKind = "END_TRAVEL"
	EventSessionStart     EventKind = "SESSION_START"
	EventSessionEnd       EventKind = "SESSION_END"
	EventResourceFailure  EventKind = "RESOURCE_FAILURE"
	EventResourceRepair   EventKind = "RESOURCE_REPAIR"
	EventCustom           EventKind = "CUSTOM"
	EventEndSimulation    EventKind = "END_SIMULATION"
)

// Event is one scheduled occurrence in the simulation. Implementations
// are small, typed payload structs; Execute dispatches to the owning
// Engine's handler for that kind.
type Event interface {
	Time() float64
	Kind() EventKind
	Seq() uint64
	Execute(e *Engine)
}

// baseEvent carries the fields common to every event: the scheduled
// time, its kind, and the monotonic insertion sequence used to break
// time ties in FIFO order.
type baseEvent struct {
	time float64
	kind EventKind
	seq  uint64
}

func (b baseEvent) Time() float64  { return b.time }
func (b baseEvent) Kind() EventKind { return b.kind }
func (b baseEvent) Seq() uint64    { return b.seq }

// ArrivalEvent signals a new entity arriving at the head of the flow.
type ArrivalEvent struct {
	baseEvent
}

func (e *ArrivalEvent) Execute(eng *Engine) { eng.handleArrival(e) }

// StartServiceEvent signals that EntityID should begin service at
// StationID. Executing it occupies one of the station's service slots
// via StartProcessing; it does not check CanAccept first.
type StartServiceEvent struct {
	baseEvent
	EntityID  int
	StationID string
}

func (e *StartServiceEvent) Execute(eng *Engine) { eng.handleStartService(e) }

// EndServiceEvent signals that EntityID's service at StationID has
// completed.
type EndServiceEvent struct {
	baseEvent
	EntityID  int
	StationID string
}

func (e *EndServiceEvent) Execute(eng *Engine) { eng.handleEndService(e) }

// EndTravelEvent signals that EntityID has finished transit and arrives
// at StationID.
type EndTravelEvent struct {
	baseEvent
	EntityID  int
	StationID string
}

func (e *EndTravelEvent) Execute(eng *Engine) { eng.handleEndTravel(e) }

// SessionStartEvent / SessionEndEvent bound a calendar session during
// which a station is scheduled to run (e.g. a shift or break window).
type SessionStartEvent struct {
	baseEvent
	StationID string
}

func (e *SessionStartEvent) Execute(eng *Engine) { eng.handleSessionStart(e) }

type SessionEndEvent struct {
	baseEvent
	StationID string
}

func (e *SessionEndEvent) Execute(eng *Engine) { eng.handleSessionEnd(e) }

// ResourceFailureEvent / ResourceRepairEvent model an unplanned outage
// driven by a station's MTBF/MTTR distributions.
type ResourceFailureEvent struct {
	baseEvent
	StationID string
}

func (e *ResourceFailureEvent) Execute(eng *Engine) { eng.handleResourceFailure(e) }

type ResourceRepairEvent struct {
	baseEvent
	StationID string
}

func (e *ResourceRepairEvent) Execute(eng *Engine) { eng.handleResourceRepair(e) }

// CustomEvent carries an opaque, engine-agnostic payload. Every custom
// kind passes through the dispatcher untouched (the engine only logs it);
// there is no way to register a handler per CustomKind.
type CustomEvent struct {
	baseEvent
	CustomKind string
	Fields     map[string]any
}

func (e *CustomEvent) Execute(eng *Engine) { eng.handleCustom(e) }

// EndSimulationEvent finalizes station durations and statistics time
// bounds, then stops the loop.
type EndSimulationEvent struct {
	baseEvent
}

func (e *EndSimulationEvent) Execute(eng *Engine) { eng.handleEndSimulation(e) }
