// Package cmd implements the thin cobra CLI driver over the sim engine.
package cmd

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sim",
	Short: "Discrete-event simulation engine for factory queueing analytics",
}

// exitError pairs an error with the process exit code it should produce:
// 0 success, 2 invalid configuration, 3 runtime failure, 4 all
// replications failed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// Execute runs the root command and exits the process with the code
// carried by the returned error, if any.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	if lvl := os.Getenv("SIM_LOG_LEVEL"); lvl != "" {
		if parsed, err := logrus.ParseLevel(lvl); err == nil {
			logrus.SetLevel(parsed)
		}
	}
	rootCmd.AddCommand(runCmd)
}
