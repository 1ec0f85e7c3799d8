package orchestrator

import (
	"svcore/pkg/logging"
)

// PackageStateChangedEvent represents a package state change during a run.
type PackageStateChangedEvent struct {
	RunID    string
	Package  string
	OldState Status
	NewState Status
	Error    error
}

// SubscribeToStateChanges returns a channel for receiving package state
// change events. Events are dropped, with a warning, when the channel is full.
func (o *Orchestrator) SubscribeToStateChanges() <-chan PackageStateChangedEvent {
	eventChan := make(chan PackageStateChangedEvent, 100)

	o.mu.Lock()
	o.stateChangeSubscribers = append(o.stateChangeSubscribers, eventChan)
	o.mu.Unlock()

	return eventChan
}

func (o *Orchestrator) publishStateChange(pkg string, oldState, newState Status, err error) {
	event := PackageStateChangedEvent{
		RunID:    o.currentRunID(),
		Package:  pkg,
		OldState: oldState,
		NewState: newState,
		Error:    err,
	}

	// Send to all subscribers (don't hold the lock while sending)
	o.mu.RLock()
	subscribers := make([]chan<- PackageStateChangedEvent, len(o.stateChangeSubscribers))
	copy(subscribers, o.stateChangeSubscribers)
	o.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
			logging.Warn("Orchestrator", "Dropped state change event for %s (subscriber channel full)", pkg)
		}
	}
}
