// Package reporting turns package state changes into log lines while a run
// is in progress.
package reporting

import (
	"context"
	"sync"

	"svcore/internal/orchestrator"
	"svcore/pkg/logging"
)

// ConsoleReporter logs package state changes via the pkg/logging package.
type ConsoleReporter struct {
	mu sync.Mutex
	// counts tracks how many packages reached each terminal status
	counts map[orchestrator.Status]int
}

// NewConsoleReporter creates a new ConsoleReporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		counts: make(map[orchestrator.Status]int),
	}
}

// Watch reports events until ctx is done, then drains whatever is still
// buffered. The returned channel is closed once the reporter has stopped.
func (c *ConsoleReporter) Watch(ctx context.Context, events <-chan orchestrator.PackageStateChangedEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event := <-events:
				c.Report(event)
			case <-ctx.Done():
				for {
					select {
					case event := <-events:
						c.Report(event)
					default:
						return
					}
				}
			}
		}
	}()
	return done
}

// Report logs a single state change. Failures are logged as errors, skips
// as warnings and package starts at debug level.
func (c *ConsoleReporter) Report(event orchestrator.PackageStateChangedEvent) {
	subsystem := "Package-" + event.Package
	logMessage := "State: " + string(event.OldState) + " -> " + string(event.NewState)
	if event.RunID != "" {
		logMessage += ", RunID: " + event.RunID
	}

	if event.NewState != orchestrator.StatusRunning {
		c.mu.Lock()
		c.counts[event.NewState]++
		c.mu.Unlock()
	}

	switch event.NewState {
	case orchestrator.StatusFailed:
		logging.Error(subsystem, event.Error, "%s", logMessage)
	case orchestrator.StatusSkipped:
		if event.Error != nil {
			logMessage += ", Reason: " + event.Error.Error()
		}
		logging.Warn(subsystem, "%s", logMessage)
	case orchestrator.StatusRunning:
		logging.Debug(subsystem, "%s", logMessage)
	default:
		logging.Info(subsystem, "%s", logMessage)
	}
}

// Count returns how many reported packages reached status.
func (c *ConsoleReporter) Count(status orchestrator.Status) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[status]
}
