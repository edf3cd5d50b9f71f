// Package replication runs N independent replications of a sim.Engine and
// aggregates their point results into cross-replication statistics with
// confidence intervals, bottleneck identification, and a Little's Law
// discrepancy check.
//
// Each replication owns a fresh *sim.Engine with its own event queue,
// stations, statistics, and RNG stream; replications never share mutable
// state, so Run can execute them concurrently.
package replication
