// Package sim provides the core discrete-event simulation engine that
// powers the factory/queueing analytics tool.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: the tagged event variant and its typed payloads
//   - event_queue.go: the min-heap event queue
//   - station.go: the capacity/queue/state machine for a processing station
//   - engine.go: the event loop and handlers
//
// # Architecture
//
// The engine owns the event queue, stations, entities, clock, statistics
// collectors, and the RNG handle. Entities are opaque tokens that flow
// through a configured sequence of stations; stations are capacity-limited
// with a finite queue and one of several dequeue scheduling rules.
//
// Replication (running N independent copies of the engine with derived
// seeds and aggregating results with confidence intervals) lives in the
// sibling sim/replication package, which wraps *Engine the way a cluster
// wraps a single instance.
package sim
