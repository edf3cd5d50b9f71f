package replication

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/factorysim/des-engine/sim"
)

// Options configures a replication run.
type Options struct {
	// Parallel runs replications concurrently, one goroutine each, when
	// true. Replications own independent engines so this is always safe;
	// set false for deterministic single-threaded debugging.
	Parallel bool

	// PerReplicationTimeout, if non-zero, is the wall-clock budget after
	// which a still-running replication is cancelled and marked timeout.
	PerReplicationTimeout time.Duration

	// Logger is passed to every replication's Engine. Defaults to
	// logrus.StandardLogger() if nil.
	Logger *logrus.Logger

	// KeepReplications includes the per-replication point results in the
	// returned SimulationResults.Replications slice.
	KeepReplications bool
}

// Run executes cfg.Replications independent replications and returns the
// aggregated SimulationResults. cfg must already have passed Validate().
func Run(cfg *sim.SimulationConfig, opts Options) (*sim.SimulationResults, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	n := cfg.Replications
	results := make([]sim.ReplicationResult, n)

	if opts.Parallel {
		var wg sync.WaitGroup
		wg.Add(n)
		for r := 0; r < n; r++ {
			r := r
			go func() {
				defer wg.Done()
				results[r] = runOne(cfg, logger, r, opts.PerReplicationTimeout)
			}()
		}
		wg.Wait()
	} else {
		for r := 0; r < n; r++ {
			results[r] = runOne(cfg, logger, r, opts.PerReplicationTimeout)
		}
	}

	return aggregate(results, opts.KeepReplications)
}

// runOne builds a fresh engine, seeds it via the stream-derivation rule in
// DeriveReplicationSeed, runs it to completion, and recovers from any
// handler panic so one bad replication never aborts the whole driver.
func runOne(cfg *sim.SimulationConfig, logger *logrus.Logger, index int, timeout time.Duration) (result sim.ReplicationResult) {
	result.Index = index
	seed := sim.DeriveReplicationSeed(cfg.BaseSeed, index)

	defer func() {
		if r := recover(); r != nil {
			result.Failed = true
			result.Cause = fmt.Sprintf("panic: %v", r)
		}
	}()

	engine, err := sim.NewEngine(cfg, seed, logger)
	if err != nil {
		result.Failed = true
		result.Cause = err.Error()
		return result
	}
	if err := engine.Start(); err != nil {
		result.Failed = true
		result.Cause = err.Error()
		return result
	}

	if timeout > 0 {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-time.After(timeout):
				engine.Cancel()
			case <-done:
			}
		}()
	}

	if err := engine.Run(); err != nil {
		if errors.Is(err, sim.ErrReplicationTimeout) {
			result.Timeout = true
		} else {
			result.Failed = true
		}
		result.Cause = err.Error()
		return result
	}

	return engine.Result(index)
}
