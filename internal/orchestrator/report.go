package orchestrator

import (
	"errors"
	"time"

	"svcore/internal/capability"
)

// Status is a package's state within a run.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusSkipped   Status = "Skipped"
)

// Outcome is the result of one package in a run.
type Outcome struct {
	ID       string
	Version  string
	Status   Status
	Err      error
	Duration time.Duration
	Requires []capability.Type
	// Provided lists the capabilities the package actually registered.
	Provided []capability.Type
}

// Report is the per-package result of an orchestration run. Outcomes are
// sorted by package ID.
type Report struct {
	RunID    string
	State    State
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Outcome returns the outcome for a package.
func (r *Report) Outcome(id string) (Outcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.ID == id {
			return outcome, true
		}
	}
	return Outcome{}, false
}

// Completed returns the IDs of packages that initialized successfully.
func (r *Report) Completed() []string {
	return r.withStatus(StatusCompleted)
}

// Failed returns the IDs of packages that failed.
func (r *Report) Failed() []string {
	return r.withStatus(StatusFailed)
}

// Skipped returns the IDs of packages that never ran.
func (r *Report) Skipped() []string {
	return r.withStatus(StatusSkipped)
}

// Err joins every failed or skipped package's error, or returns nil when the
// run completed.
func (r *Report) Err() error {
	var errs []error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return errors.Join(errs...)
}

func (r *Report) withStatus(status Status) []string {
	var ids []string
	for _, outcome := range r.Outcomes {
		if outcome.Status == status {
			ids = append(ids, outcome.ID)
		}
	}
	return ids
}
