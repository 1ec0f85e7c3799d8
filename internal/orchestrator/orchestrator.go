package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"svcore/internal/capability"
	"svcore/internal/dependency"
	"svcore/internal/metrics"
	"svcore/pkg/logging"

	"github.com/google/uuid"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateCollecting State = "Collecting"
	StateResolving  State = "Resolving"
	StateRunning    State = "Running"
	StateCompleted  State = "Completed"
	StateFailed     State = "Failed"
)

// Orchestrator collects package descriptors during bootstrap and, once
// BeginInitialization is called, initializes them in an order that respects
// their capability dependencies. It owns the capability registry that every
// package reads from and publishes into.
type Orchestrator struct {
	registry *capability.Registry
	metrics  *metrics.Metrics

	// Configuration
	packageTimeout time.Duration
	maxConcurrency int
	skipCycleCheck bool

	// Package tracking
	state       State
	descriptors map[string]*Descriptor
	submitted   []string // submission order, diagnostics only
	runID       string

	// State change event subscribers
	stateChangeSubscribers []chan<- PackageStateChangedEvent

	mu sync.RWMutex // Protects descriptors, state and subscribers
}

// Config holds configuration for the orchestrator.
type Config struct {
	// Registry to initialize into. A new registry is created when nil.
	Registry *capability.Registry
	// PackageTimeout bounds each package's Init. Zero means no deadline.
	PackageTimeout time.Duration
	// MaxConcurrency bounds how many Init routines run at once. Zero means unbounded.
	MaxConcurrency int
	// SkipCycleCheck disables the static cycle check over declared providers.
	SkipCycleCheck bool
	// Metrics receives initialization metrics. Optional.
	Metrics *metrics.Metrics
}

// New creates an orchestrator in the Collecting state.
func New(cfg Config) *Orchestrator {
	registry := cfg.Registry
	if registry == nil {
		registry = capability.NewRegistry()
	}

	o := &Orchestrator{
		registry:               registry,
		metrics:                cfg.Metrics,
		packageTimeout:         cfg.PackageTimeout,
		maxConcurrency:         cfg.MaxConcurrency,
		skipCycleCheck:         cfg.SkipCycleCheck,
		state:                  StateCollecting,
		descriptors:            make(map[string]*Descriptor),
		stateChangeSubscribers: make([]chan<- PackageStateChangedEvent, 0),
	}

	if cfg.Metrics != nil {
		registry.OnRegister(func(capability.Entry) {
			cfg.Metrics.CapabilityRegistered()
		})
	}
	return o
}

// Registry returns the capability registry packages initialize into.
func (o *Orchestrator) Registry() *capability.Registry {
	return o.registry
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Submit adds a package descriptor. It must be called before
// BeginInitialization, at most once per package identity, in any order.
func (o *Orchestrator) Submit(d Descriptor) (*Registration, error) {
	desc := d.clone()
	if err := desc.validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateCollecting {
		return nil, fmt.Errorf("submit %q: %w", desc.ID, ErrNotCollecting)
	}
	if _, exists := o.descriptors[desc.ID]; exists {
		return nil, &DuplicateRegistrationError{Package: desc.ID}
	}

	o.descriptors[desc.ID] = desc
	o.submitted = append(o.submitted, desc.ID)

	logging.Debug("Orchestrator", "Submitted package %s %s (requires: %v, provides: %v)",
		desc.ID, desc.Version, desc.Requires, desc.Provides)

	return &Registration{orch: o, id: desc.ID}, nil
}

// amend applies change to a submitted descriptor while still collecting.
func (o *Orchestrator) amend(id string, change func(*Descriptor), capType capability.Type) error {
	if capType == "" {
		return fmt.Errorf("%w: package %q declares an empty capability type", ErrInvalidDescriptor, id)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateCollecting {
		return fmt.Errorf("amend %q: %w", id, ErrNotCollecting)
	}
	desc, exists := o.descriptors[id]
	if !exists {
		return fmt.Errorf("%w: package %q is not registered", ErrInvalidDescriptor, id)
	}
	change(desc)
	return nil
}

// Descriptors returns copies of all submitted descriptors sorted by ID.
func (o *Orchestrator) Descriptors() []Descriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]Descriptor, 0, len(o.descriptors))
	for _, desc := range o.descriptors {
		result = append(result, *desc.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// SubmissionOrder returns package IDs in the order they were submitted.
func (o *Orchestrator) SubmissionOrder() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]string, len(o.submitted))
	copy(result, o.submitted)
	return result
}

// Graph builds the static dependency graph from declared providers.
func (o *Orchestrator) Graph() *dependency.Graph {
	o.mu.RLock()
	defer o.mu.RUnlock()
	graph, _ := buildDependencyGraph(o.descriptors)
	return graph
}

// BeginInitialization resolves dependencies and runs every submitted
// package's Init, returning a per-package report. It may be called once; the
// returned error is non-nil only for misuse, run failures are in the report.
func (o *Orchestrator) BeginInitialization(ctx context.Context) (*Report, error) {
	o.mu.Lock()
	if o.state != StateCollecting {
		o.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	o.runID = uuid.NewString()
	descriptors := make(map[string]*Descriptor, len(o.descriptors))
	for id, desc := range o.descriptors {
		descriptors[id] = desc.clone()
	}
	// Leave Collecting before unlocking so that late submissions and a
	// second call are rejected.
	o.state = StateResolving
	o.mu.Unlock()
	logging.Debug("Orchestrator", "State %s -> %s", StateCollecting, StateResolving)

	r := newRun(o, descriptors)
	report := r.execute(ctx)

	o.metrics.RunFinished(string(report.State), report.Finished.Sub(report.Started))
	logging.Info("Orchestrator", "Initialization run %s finished: %s (%d completed, %d failed, %d skipped)",
		report.RunID, report.State, len(report.Completed()), len(report.Failed()), len(report.Skipped()))

	return report, nil
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	old := o.state
	o.state = state
	o.mu.Unlock()

	if old != state {
		logging.Debug("Orchestrator", "State %s -> %s", old, state)
	}
}

func (o *Orchestrator) currentRunID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.runID
}

// buildDependencyGraph maps every required type to the package that declared
// it provides that type. The returned map is type -> provider.
func buildDependencyGraph(descriptors map[string]*Descriptor) (*dependency.Graph, map[capability.Type]string) {
	ids := make([]string, 0, len(descriptors))
	for id := range descriptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// First declared provider by ID wins; later ones are rejected when claiming.
	providers := make(map[capability.Type]string)
	for _, id := range ids {
		for _, t := range descriptors[id].Provides {
			if _, exists := providers[t]; !exists {
				providers[t] = id
			}
		}
	}

	graph := dependency.New()
	for _, id := range ids {
		desc := descriptors[id]
		var deps []dependency.NodeID
		for _, t := range desc.Requires {
			if provider, ok := providers[t]; ok {
				deps = append(deps, dependency.NodeID(provider))
			}
		}
		graph.AddNode(dependency.Node{
			ID:           dependency.NodeID(id),
			FriendlyName: fmt.Sprintf("%s@%s", id, desc.Version),
			DependsOn:    deps,
		})
	}
	return graph, providers
}
