// Package config holds the run configuration for a wrapped command. The
// config is built once from CLI arguments and never mutated afterwards, so
// the redirection workers can share it without synchronization.
package config

import "fmt"

// Config describes one wrapped command invocation.
type Config struct {
	Program string   // command to run, looked up via PATH if not a path
	Args    []string // arguments passed to the command
	Verbose bool     // enable per-tick debug traces
	Timeout int      // poll timeout in milliseconds, bounds shutdown latency
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Program == "" {
		errors = append(errors, fmt.Errorf("insufficient command line arguments: specify a command to run"))
	}

	if c.Timeout < 1 {
		errors = append(errors, fmt.Errorf("'--timeout' must be a positive number of milliseconds"))
	}

	return errors
}
