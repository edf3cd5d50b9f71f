package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/factorysim/des-engine/sim"
	"github.com/factorysim/des-engine/sim/replication"
)

var (
	configPath   string
	seedOverride int64
	repsOverride int
	parallel     bool
	logLevel     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a config file, writing a JSON results document to stdout",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a SimulationConfig YAML file (required)")
	runCmd.Flags().Int64Var(&seedOverride, "seed", 0, "override base_seed from the config file")
	runCmd.Flags().IntVar(&repsOverride, "reps", 0, "override replications from the config file")
	runCmd.Flags().BoolVar(&parallel, "parallel", true, "run replications concurrently, one goroutine each")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (error, warn, info, debug)")
	_ = runCmd.MarkFlagRequired("config")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("invalid log level %q: %w", logLevel, err)}
	}
	logger := logrus.New()
	logger.SetLevel(level)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("reading config: %w", err)}
	}

	var cfg sim.SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &exitError{code: 2, err: fmt.Errorf("parsing config: %w", err)}
	}

	if cmd.Flags().Changed("seed") {
		cfg.BaseSeed = seedOverride
	}
	if cmd.Flags().Changed("reps") {
		cfg.Replications = repsOverride
	}

	if err := cfg.Validate(); err != nil {
		return &exitError{code: 2, err: err}
	}

	results, err := replication.Run(&cfg, replication.Options{
		Parallel:         parallel,
		Logger:           logger,
		KeepReplications: true,
	})
	if err != nil {
		if errors.Is(err, sim.ErrNoSuccessfulReplications) {
			writeJSON(results)
			return &exitError{code: 4, err: err}
		}
		return &exitError{code: 3, err: err}
	}

	writeJSON(results)
	return nil
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
