package sim

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Engine is the core object holding simulation time, station/entity
// state, and the event loop. It owns the event queue, stations,
// entities, clock, statistics collectors, and the RNG handle.
type Engine struct {
	Config *SimulationConfig
	Logger *logrus.Logger

	Clock    float64
	Warmup   float64
	StopTime float64 // warmup + simulation_time

	Queue    *EventQueue
	Stations map[string]*Station
	Entities map[int]*Entity

	RNG         *PartitionedRNG
	arrivalDist Distribution

	flowIndex  map[string]int    // station id -> position in Config.Flow, for linear pipelines
	upstream   map[string][]string // station id -> stations whose next hop is this station
	roundRobin map[string]*roundRobinState

	nextEntityID int

	// Statistics, gated by Warmup.
	StationUtilization map[string]*TimeWeightedStat
	StationQueueLength  map[string]*TimeWeightedStat
	StationBlockedFrac  map[string]*TimeWeightedStat
	WIP                 *TimeWeightedStat
	CycleTime           *ObservationStat
	ValueAddedTime      *ObservationStat
	WaitTime            *ObservationStat

	EntitiesCreated   int
	EntitiesCompleted int
	EntitiesRejected  int

	cancelled bool
}

// NewEngine builds an Engine from a validated config and a master seed.
// Callers must call cfg.Validate() first; NewEngine does not re-validate.
func NewEngine(cfg *SimulationConfig, seed int64, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	arrivalDist, err := cfg.Arrival.NewDistribution()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Config:     cfg,
		Logger:     logger,
		Warmup:     cfg.WarmupTime,
		StopTime:   cfg.WarmupTime + cfg.SimulationTime,
		Queue:      NewEventQueue(),
		Stations:   make(map[string]*Station),
		Entities:   make(map[int]*Entity),
		RNG:        NewPartitionedRNG(seed),
		arrivalDist: arrivalDist,
		flowIndex:  make(map[string]int),
		upstream:   make(map[string][]string),
		roundRobin: make(map[string]*roundRobinState),

		StationUtilization: make(map[string]*TimeWeightedStat),
		StationQueueLength: make(map[string]*TimeWeightedStat),
		StationBlockedFrac: make(map[string]*TimeWeightedStat),
		WIP:                NewTimeWeightedStat(cfg.WarmupTime),
		CycleTime:          NewObservationStat(cfg.WarmupTime),
		ValueAddedTime:     NewObservationStat(cfg.WarmupTime),
		WaitTime:           NewObservationStat(cfg.WarmupTime),
	}

	for i, id := range cfg.Flow {
		e.flowIndex[id] = i
		if i+1 < len(cfg.Flow) {
			e.upstream[cfg.Flow[i+1]] = append(e.upstream[cfg.Flow[i+1]], id)
		}
	}

	rrBySet := make(map[string]*roundRobinState)
	for _, mc := range cfg.Machines {
		svc, err := mc.Service.NewDistribution()
		if err != nil {
			return nil, err
		}
		st := NewStation(mc.ID, mc.Capacity, mc.QueueCapacity, svc)
		if mc.DequeueRule != "" {
			st.DequeueRule = mc.DequeueRule
		}
		if mc.Setup != nil {
			if st.Setup, err = mc.Setup.NewDistribution(); err != nil {
				return nil, err
			}
		}
		if mc.MTBF != nil {
			if st.MTBF, err = mc.MTBF.NewDistribution(); err != nil {
				return nil, err
			}
		}
		if mc.MTTR != nil {
			if st.MTTR, err = mc.MTTR.NewDistribution(); err != nil {
				return nil, err
			}
		}
		e.Stations[mc.ID] = st
		e.StationUtilization[mc.ID] = NewTimeWeightedStat(cfg.WarmupTime)
		e.StationQueueLength[mc.ID] = NewTimeWeightedStat(cfg.WarmupTime)
		e.StationBlockedFrac[mc.ID] = NewTimeWeightedStat(cfg.WarmupTime)

		for _, d := range mc.DownstreamIDs {
			e.upstream[d] = append(e.upstream[d], mc.ID)
		}
		if len(mc.DownstreamIDs) > 1 {
			set := strings.Join(mc.DownstreamIDs, ",")
			if rrBySet[set] == nil {
				rrBySet[set] = &roundRobinState{}
			}
			e.roundRobin[mc.ID] = rrBySet[set]
		}
	}

	return e, nil
}

// Reset restores the engine to a fresh pre-run state so it can be reused
// for another replication with a re-seeded RNG.
func (e *Engine) Reset(seed int64) {
	e.Clock = 0
	e.cancelled = false
	e.nextEntityID = 0
	e.EntitiesCreated = 0
	e.EntitiesCompleted = 0
	e.EntitiesRejected = 0
	e.Entities = make(map[int]*Entity)
	e.Queue.Clear()
	e.RNG.Seed(seed)
	for _, rr := range e.roundRobin {
		rr.next = 0
	}
	for id, st := range e.Stations {
		st.Reset()
		e.StationUtilization[id].Reset()
		e.StationQueueLength[id].Reset()
		e.StationBlockedFrac[id].Reset()
	}
	e.WIP.Reset()
	e.CycleTime.Reset()
	e.ValueAddedTime.Reset()
	e.WaitTime.Reset()
}

// Cancel requests cooperative termination at the next event boundary;
// cancellation is checked at event boundaries only, never mid-handler.
func (e *Engine) Cancel() { e.cancelled = true }

// schedule stamps ev with the next insertion sequence and pushes it.
func (e *Engine) schedule(ev Event) error {
	switch v := ev.(type) {
	case *ArrivalEvent:
		v.seq = e.Queue.NextSeq()
	case *StartServiceEvent:
		v.seq = e.Queue.NextSeq()
	case *EndServiceEvent:
		v.seq = e.Queue.NextSeq()
	case *EndTravelEvent:
		v.seq = e.Queue.NextSeq()
	case *SessionStartEvent:
		v.seq = e.Queue.NextSeq()
	case *SessionEndEvent:
		v.seq = e.Queue.NextSeq()
	case *ResourceFailureEvent:
		v.seq = e.Queue.NextSeq()
	case *ResourceRepairEvent:
		v.seq = e.Queue.NextSeq()
	case *CustomEvent:
		v.seq = e.Queue.NextSeq()
	case *EndSimulationEvent:
		v.seq = e.Queue.NextSeq()
	}
	return e.Queue.Schedule(ev, e.Clock)
}

// Run drains the event queue until it is empty, a popped event's time
// exceeds StopTime, an END_SIMULATION event has been handled, or Cancel()
// was called.
func (e *Engine) Run() error {
	for {
		if e.cancelled {
			return ErrReplicationTimeout
		}
		if e.Queue.IsEmpty() {
			return nil
		}
		ev := e.Queue.PopMin()
		if ev.Time() > e.StopTime {
			return nil
		}
		if ev.Time() < e.Clock {
			return &HandlerError{Clock: e.Clock, EventKind: ev.Kind(), Cause: ErrScheduleInPast}
		}
		e.Clock = ev.Time()

		e.snapshotAt(e.Clock)

		e.Logger.WithFields(logrus.Fields{"clock": e.Clock, "event": ev.Kind()}).Debug("dispatch")
		ev.Execute(e)
		if ev.Kind() == EventEndSimulation {
			return nil
		}
	}
}

// snapshotAt updates every time-weighted collector at time t using the
// pre-handler state: the interval (previous_clock, t] is accounted at
// the values as of just before the handler runs.
func (e *Engine) snapshotAt(t float64) {
	var wip float64
	for id, st := range e.Stations {
		util := 0.0
		if cap := st.effectiveCapacity(); cap > 0 {
			util = float64(st.busySlots) / float64(st.Capacity)
		}
		e.StationUtilization[id].Update(t, util)
		e.StationQueueLength[id].Update(t, float64(st.QueueLen()))
		blocked := 0.0
		if st.State() == StationBlocked {
			blocked = 1
		}
		e.StationBlockedFrac[id].Update(t, blocked)
		wip += float64(st.busySlots + st.QueueLen())
		if st.blockedEntity != nil {
			wip++
		}
	}
	e.WIP.Update(t, wip)
}

// --- handlers -----------------------------------------------------

func (e *Engine) handleArrival(ev *ArrivalEvent) {
	if len(e.Config.Flow) == 0 {
		return
	}
	first := e.Config.Flow[0]
	entity := newEntity(e.nextEntityID, e.Clock)
	e.nextEntityID++
	e.EntitiesCreated++

	e.Entities[entity.ID] = entity

	station := e.Stations[first]
	if station.CanAccept() {
		station.StartProcessing(entity, e.Clock)
		e.scheduleServiceCompletion(entity, station)
	} else if station.CanEnqueue() {
		_ = station.Enqueue(entity, e.Clock)
	} else {
		entity.Rejected = true
		e.EntitiesRejected++
		delete(e.Entities, entity.ID)
		e.Logger.WithFields(logrus.Fields{"clock": e.Clock, "station": first}).Info("entity rejected: queue full at arrival")
	}

	next := e.Clock + e.arrivalDist.Sample(e.RNG.ForSubsystem(SubsystemArrivals))
	if next <= e.StopTime {
		_ = e.schedule(&ArrivalEvent{baseEvent: baseEvent{time: next, kind: EventArrival}})
	}
}

// scheduleServiceCompletion samples a service duration (plus optional
// setup) for entity at station and schedules its END_SERVICE.
func (e *Engine) scheduleServiceCompletion(entity *Entity, station *Station) {
	d := station.Service.Sample(e.RNG.ForSubsystem(SubsystemStation(SubsystemService, station.ID)))
	if station.Setup != nil {
		d += station.Setup.Sample(e.RNG.ForSubsystem(SubsystemStation("setup", station.ID)))
	}
	_ = e.schedule(&EndServiceEvent{
		baseEvent: baseEvent{time: e.Clock + d, kind: EventEndService},
		EntityID:  entity.ID,
		StationID: station.ID,
	})
}

func (e *Engine) handleStartService(ev *StartServiceEvent) {
	station := e.Stations[ev.StationID]
	entity := e.entityByID(ev.EntityID)
	if station == nil || entity == nil {
		return
	}
	station.StartProcessing(entity, e.Clock)
	e.scheduleServiceCompletion(entity, station)
}

func (e *Engine) handleEndService(ev *EndServiceEvent) {
	station := e.Stations[ev.StationID]
	if station == nil {
		return
	}
	entity := station.EndProcessing(ev.EntityID, e.Clock)
	if entity == nil {
		return
	}

	nextID, hasNext := e.nextStationFor(station.ID, entity)

	switch {
	case hasNext && e.Stations[nextID].CanAccept():
		station.MaybeIdle(e.Clock)
		next := e.Stations[nextID]
		next.StartProcessing(entity, e.Clock)
		e.scheduleServiceCompletion(entity, next)
		e.pullQueueHead(station)

	case hasNext && e.Stations[nextID].CanEnqueue():
		station.MaybeIdle(e.Clock)
		_ = e.Stations[nextID].Enqueue(entity, e.Clock)
		e.pullQueueHead(station)

	case hasNext:
		station.SetBlocked(entity, e.Clock)

	default:
		entity.Completed = true
		entity.ExitTime = e.Clock
		e.EntitiesCompleted++
		e.CycleTime.Record(e.Clock, entity.CycleTime())
		e.ValueAddedTime.Record(e.Clock, entity.ValueAddedTime())
		e.WaitTime.Record(e.Clock, entity.WaitTime())
		delete(e.Entities, entity.ID)
		station.MaybeIdle(e.Clock)
		e.pullQueueHead(station)
	}

	// Unblock any upstream station that was waiting to discharge into
	// this station, now that a slot may have freed up. The handler that
	// frees a slot is responsible for unblocking it.
	e.unblockUpstream(station.ID)
}

// pullQueueHead, when station has a free slot and a non-empty queue,
// dequeues the head (per the station's DequeueRule) and immediately
// starts its service at the current clock. Gating on CanAccept rather
// than State() == StationIdle matters for Capacity > 1: a station can
// have a free slot to offer the queue while other slots keep it busy.
func (e *Engine) pullQueueHead(station *Station) {
	if station.QueueLen() == 0 || !station.CanAccept() {
		return
	}
	head := station.Dequeue(e.Clock)
	if head == nil {
		return
	}
	station.StartProcessing(head, e.Clock)
	e.scheduleServiceCompletion(head, station)
}

// unblockUpstream finds every station whose next hop is stationID and is
// currently blocked. stationID just freed a slot, so each one transfers
// its blocked entity downstream now: into a free service slot, or else
// into the queue when it has room.
func (e *Engine) unblockUpstream(stationID string) {
	for _, upID := range e.upstream[stationID] {
		up := e.Stations[upID]
		if up == nil || up.State() != StationBlocked {
			continue
		}
		downstream := e.Stations[stationID]
		if !downstream.CanAccept() && !downstream.CanEnqueue() {
			continue
		}
		entity := up.ClearBlocked(e.Clock)
		if entity == nil {
			continue
		}
		if downstream.CanAccept() {
			downstream.StartProcessing(entity, e.Clock)
			e.scheduleServiceCompletion(entity, downstream)
		} else {
			_ = downstream.Enqueue(entity, e.Clock)
		}
		e.pullQueueHead(up)
	}
}

func (e *Engine) handleEndTravel(ev *EndTravelEvent) {
	station := e.Stations[ev.StationID]
	entity := e.entityByID(ev.EntityID)
	if station == nil || entity == nil {
		return
	}
	if station.CanAccept() {
		station.StartProcessing(entity, e.Clock)
		e.scheduleServiceCompletion(entity, station)
	} else if station.CanEnqueue() {
		_ = station.Enqueue(entity, e.Clock)
	} else {
		entity.Rejected = true
		e.EntitiesRejected++
		delete(e.Entities, entity.ID)
	}
}

func (e *Engine) handleSessionStart(ev *SessionStartEvent) {
	if st := e.Stations[ev.StationID]; st != nil {
		st.SetUp(e.Clock)
	}
}

func (e *Engine) handleSessionEnd(ev *SessionEndEvent) {
	if st := e.Stations[ev.StationID]; st != nil {
		st.SetDown(e.Clock)
	}
}

func (e *Engine) handleResourceFailure(ev *ResourceFailureEvent) {
	st := e.Stations[ev.StationID]
	if st == nil {
		return
	}
	st.SetDown(e.Clock)
	if st.MTTR != nil {
		repair := st.MTTR.Sample(e.RNG.ForSubsystem(SubsystemFailures))
		_ = e.schedule(&ResourceRepairEvent{
			baseEvent: baseEvent{time: e.Clock + repair, kind: EventResourceRepair},
			StationID: st.ID,
		})
	}
}

func (e *Engine) handleResourceRepair(ev *ResourceRepairEvent) {
	st := e.Stations[ev.StationID]
	if st == nil {
		return
	}
	st.SetUp(e.Clock)
	e.pullQueueHead(st)
	if st.MTBF != nil {
		nextFailure := st.MTBF.Sample(e.RNG.ForSubsystem(SubsystemFailures))
		if e.Clock+nextFailure <= e.StopTime {
			_ = e.schedule(&ResourceFailureEvent{
				baseEvent: baseEvent{time: e.Clock + nextFailure, kind: EventResourceFailure},
				StationID: st.ID,
			})
		}
	}
}

func (e *Engine) handleCustom(ev *CustomEvent) {
	// Custom kinds pass through untouched: there is no engine-level
	// behavior for custom events and no way to register one, so the
	// engine simply logs it.
	e.Logger.WithFields(logrus.Fields{"clock": e.Clock, "custom_kind": ev.CustomKind}).Debug("custom event")
}

func (e *Engine) handleEndSimulation(ev *EndSimulationEvent) {
	for _, st := range e.Stations {
		st.Finalize(e.Clock)
	}
	for _, ts := range e.StationUtilization {
		ts.Finalize(e.Clock)
	}
	for _, ts := range e.StationQueueLength {
		ts.Finalize(e.Clock)
	}
	for _, ts := range e.StationBlockedFrac {
		ts.Finalize(e.Clock)
	}
	e.WIP.Finalize(e.Clock)
}

// nextStationFor returns the next station id in entity's flow after
// stationID, selecting among parallel candidates via routing when more
// than one downstream id is configured.
func (e *Engine) nextStationFor(stationID string, entity *Entity) (string, bool) {
	mc := e.machineConfig(stationID)
	if mc != nil && len(mc.DownstreamIDs) > 0 {
		decision, err := SelectDownstream(
			mc.Routing,
			mc.DownstreamIDs,
			e.Stations,
			mc.RouteWeights,
			entity,
			e.Clock,
			e.RNG.ForSubsystem(SubsystemRouting),
			e.roundRobin[stationID],
		)
		if err != nil {
			return "", false
		}
		return decision.StationID, true
	}

	idx, ok := e.flowIndex[stationID]
	if !ok || idx+1 >= len(e.Config.Flow) {
		return "", false
	}
	return e.Config.Flow[idx+1], true
}

func (e *Engine) machineConfig(id string) *MachineConfig {
	for i := range e.Config.Machines {
		if e.Config.Machines[i].ID == id {
			return &e.Config.Machines[i]
		}
	}
	return nil
}

// entityByID looks up an in-flight entity in the engine's arena: every
// cross-reference from an event payload is this integer id, never a
// stored pointer.
func (e *Engine) entityByID(id int) *Entity {
	return e.Entities[id]
}

// InjectArrival is a test/tabular-I/O seam that schedules an extra
// ARRIVAL event at t, for scenario construction. The injected event is
// handled like any other ARRIVAL: it also schedules a follow-on arrival
// from the inter-arrival distribution, so each call starts an additional
// arrival stream rather than adding one single entity.
func (e *Engine) InjectArrival(t float64) error {
	if t < e.Clock {
		return fmt.Errorf("%w: inject arrival at %.6g < clock %.6g", ErrScheduleInPast, t, e.Clock)
	}
	return e.schedule(&ArrivalEvent{baseEvent: baseEvent{time: t, kind: EventArrival}})
}

// Start schedules the first ARRIVAL at time 0 and an END_SIMULATION at
// StopTime, the standard bootstrap for one replication.
func (e *Engine) Start() error {
	if err := e.schedule(&ArrivalEvent{baseEvent: baseEvent{time: 0, kind: EventArrival}}); err != nil {
		return err
	}
	return e.schedule(&EndSimulationEvent{baseEvent: baseEvent{time: e.StopTime, kind: EventEndSimulation}})
}
