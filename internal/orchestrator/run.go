package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"svcore/internal/capability"
	"svcore/internal/dependency"
	"svcore/pkg/logging"
)

// result is sent by an Init goroutine when it returns.
type result struct {
	id       string
	err      error
	duration time.Duration
	provided []capability.Type
}

// run is the state of a single orchestration run. Everything except the
// results channel is confined to the goroutine calling execute.
type run struct {
	orch        *Orchestrator
	registry    *capability.Registry
	descriptors map[string]*Descriptor
	ids         []string

	graph     *dependency.Graph
	providers map[capability.Type]string // type -> package holding the claim
	cyclic    map[string][]string // package -> members of its cycle

	outcomes map[string]*Outcome
	pending  map[string]bool
	dead     map[string]bool // failed or skipped
	inFlight int
	results  chan result
}

func newRun(o *Orchestrator, descriptors map[string]*Descriptor) *run {
	ids := make([]string, 0, len(descriptors))
	for id := range descriptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	r := &run{
		orch:        o,
		registry:    o.registry,
		descriptors: descriptors,
		ids:         ids,
		providers:   make(map[capability.Type]string),
		cyclic:      make(map[string][]string),
		outcomes:    make(map[string]*Outcome, len(ids)),
		pending:     make(map[string]bool, len(ids)),
		dead:        make(map[string]bool),
		// Buffered so Init goroutines never block on send.
		results: make(chan result, len(ids)),
	}

	for _, id := range ids {
		desc := descriptors[id]
		r.outcomes[id] = &Outcome{
			ID:       id,
			Version:  desc.Version,
			Status:   StatusPending,
			Requires: desc.Requires,
		}
		r.pending[id] = true
	}
	return r
}

func (r *run) execute(ctx context.Context) *Report {
	started := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.resolve()

	r.orch.setState(StateRunning)
	cancelled := r.schedule(runCtx)
	r.settle(runCtx, cancelled)

	state := StateCompleted
	outcomes := make([]Outcome, 0, len(r.ids))
	for _, id := range r.ids {
		outcome := r.outcomes[id]
		if outcome.Status != StatusCompleted {
			state = StateFailed
		}
		outcomes = append(outcomes, *outcome)
	}
	r.orch.setState(state)

	return &Report{
		RunID:    r.orch.currentRunID(),
		State:    state,
		Started:  started,
		Finished: time.Now(),
		Outcomes: outcomes,
	}
}

// resolve builds the graph, claims declared capabilities for their providers
// and fails packages that sit on a declared dependency cycle.
func (r *run) resolve() {
	r.graph, _ = buildDependencyGraph(r.descriptors)

	for _, id := range r.ids {
		for _, t := range r.descriptors[id].Provides {
			if err := r.registry.Claim(id, t); err != nil {
				r.fail(id, err)
				break
			}
			r.providers[t] = id
		}
	}

	for _, group := range r.graph.CycleGroups() {
		members := make([]string, len(group))
		for i, id := range group {
			members[i] = string(id)
		}
		for _, id := range members {
			r.cyclic[id] = members
		}
	}
	if r.orch.skipCycleCheck {
		return
	}

	for _, id := range r.ids {
		if r.cyclic[id] == nil || !r.pending[id] {
			continue
		}
		r.fail(id, &UnresolvedDependencyError{
			Package: id,
			Missing: r.registry.Missing(r.descriptors[id].Requires),
			Cycle:   r.cycleFor(id),
		})
	}
}

// schedule starts every ready package and waits for completions until nothing
// is in flight. It reports whether the context was cancelled.
func (r *run) schedule(ctx context.Context) bool {
	done := ctx.Done()
	cancelled := false

	for {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if !cancelled {
			r.propagateSkips()
			r.startReady(ctx)
		}
		if r.inFlight == 0 {
			return cancelled
		}

		select {
		case res := <-r.results:
			r.complete(res)
		case <-done:
			// Stop scheduling; in-flight routines see ctx.Done() and are awaited.
			logging.Warn("Orchestrator", "Initialization cancelled with %d package(s) in flight", r.inFlight)
			cancelled = true
			done = nil
		}
	}
}

func (r *run) startReady(ctx context.Context) {
	for _, id := range r.ids {
		if !r.pending[id] {
			continue
		}
		if r.orch.maxConcurrency > 0 && r.inFlight >= r.orch.maxConcurrency {
			return
		}
		desc := r.descriptors[id]
		if len(r.registry.Missing(desc.Requires)) > 0 {
			continue
		}
		r.start(ctx, desc)
	}
}

func (r *run) start(ctx context.Context, desc *Descriptor) {
	delete(r.pending, desc.ID)
	r.outcomes[desc.ID].Status = StatusRunning
	r.inFlight++
	r.orch.metrics.PackageStarted()
	r.orch.publishStateChange(desc.ID, StatusPending, StatusRunning, nil)

	logging.Debug("Orchestrator", "Starting initialization of %s", desc.ID)

	go r.invoke(ctx, desc)
}

func (r *run) invoke(ctx context.Context, desc *Descriptor) {
	started := time.Now()
	scope := r.registry.Scope(desc.ID, desc.Provides)

	initCtx := ctx
	if r.orch.packageTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, r.orch.packageTimeout)
		defer cancel()
	}

	err := callInit(initCtx, desc, scope)
	provided := scope.Registered()
	if err == nil {
		if missing := unregistered(desc.Provides, provided); len(missing) > 0 {
			err = fmt.Errorf("%w: %s", ErrProvidesNotMet, joinTypes(missing))
		}
	}
	if err != nil {
		err = &PackageInitializationError{Package: desc.ID, Cause: err}
	}

	r.results <- result{
		id:       desc.ID,
		err:      err,
		duration: time.Since(started),
		provided: provided,
	}
}

func callInit(ctx context.Context, desc *Descriptor, scope *capability.Scope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return desc.Init(ctx, scope)
}

func (r *run) complete(res result) {
	r.inFlight--

	outcome := r.outcomes[res.id]
	outcome.Duration = res.duration
	outcome.Provided = res.provided

	if res.err != nil {
		outcome.Status = StatusFailed
		outcome.Err = res.err
		r.dead[res.id] = true
		logging.Debug("Orchestrator", "Package %s failed after %s: %v", res.id, res.duration, res.err)
	} else {
		outcome.Status = StatusCompleted
		logging.Debug("Orchestrator", "Package %s initialized in %s (provided: %s)", res.id, res.duration, joinTypes(res.provided))
	}

	r.orch.metrics.PackageFinished(res.id, string(outcome.Status), res.duration)
	r.orch.publishStateChange(res.id, StatusRunning, outcome.Status, outcome.Err)
}

// propagateSkips skips every pending package that requires a capability owned
// or declared by a failed or skipped package, until nothing changes.
func (r *run) propagateSkips() {
	for changed := true; changed; {
		changed = false
		for _, id := range r.ids {
			if !r.pending[id] {
				continue
			}
			upstream := r.deadUpstream(r.descriptors[id])
			if len(upstream) == 0 {
				continue
			}
			r.skip(id, fmt.Errorf("%w: depends on %s which did not complete", ErrSkipped, strings.Join(upstream, ", ")))
			changed = true
		}
	}
}

func (r *run) deadUpstream(desc *Descriptor) []string {
	seen := make(map[string]bool)
	var upstream []string
	for _, t := range desc.Requires {
		provider := ""
		if owner, registered := r.registry.Owner(t); registered {
			provider = owner
		} else if declared, ok := r.providers[t]; ok {
			provider = declared
		}
		if provider != "" && r.dead[provider] && !seen[provider] {
			seen[provider] = true
			upstream = append(upstream, provider)
		}
	}
	sort.Strings(upstream)
	return upstream
}

// settle resolves every package still pending once nothing is in flight.
func (r *run) settle(ctx context.Context, cancelled bool) {
	if cancelled {
		for _, id := range r.ids {
			if r.pending[id] {
				r.skip(id, fmt.Errorf("%w: %w", ErrSkipped, ctx.Err()))
			}
		}
		return
	}

	for len(r.pending) > 0 {
		r.propagateSkips()
		if len(r.pending) == 0 {
			return
		}

		// Packages whose missing capabilities are not waiting on another pending
		// package are the root of the stall. If there are none, what remains
		// hangs off a cycle and the cycle members are the roots.
		var roots []string
		for _, id := range r.ids {
			if r.pending[id] && !r.waitsOnPending(id) {
				roots = append(roots, id)
			}
		}
		if len(roots) == 0 {
			roots = r.pendingWhere(func(id string) bool { return r.cyclic[id] != nil })
		}
		if len(roots) == 0 {
			roots = r.pendingWhere(func(string) bool { return true })
		}

		for _, id := range roots {
			r.fail(id, &UnresolvedDependencyError{
				Package: id,
				Missing: r.registry.Missing(r.descriptors[id].Requires),
				Cycle:   r.cycleFor(id),
			})
		}
	}
}

func (r *run) waitsOnPending(id string) bool {
	for _, t := range r.registry.Missing(r.descriptors[id].Requires) {
		if provider, ok := r.providers[t]; ok && provider != id && r.pending[provider] {
			return true
		}
	}
	return false
}

func (r *run) pendingWhere(match func(id string) bool) []string {
	var ids []string
	for _, id := range r.ids {
		if r.pending[id] && match(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// cycleFor returns the sorted members of the cycle id lies on, or nil.
func (r *run) cycleFor(id string) []string {
	members := r.cyclic[id]
	if members == nil {
		return nil
	}
	return append([]string(nil), members...)
}

func (r *run) fail(id string, err error) {
	r.resolveWithoutRunning(id, StatusFailed, err)
	logging.Debug("Orchestrator", "Package %s cannot be initialized: %v", id, err)
}

func (r *run) skip(id string, err error) {
	r.resolveWithoutRunning(id, StatusSkipped, err)
	logging.Debug("Orchestrator", "Skipping package %s: %v", id, err)
}

func (r *run) resolveWithoutRunning(id string, status Status, err error) {
	delete(r.pending, id)
	r.dead[id] = true

	outcome := r.outcomes[id]
	outcome.Status = status
	outcome.Err = err

	r.orch.metrics.PackageResolved(id, string(status))
	r.orch.publishStateChange(id, StatusPending, status, err)
}

func unregistered(declared, registered []capability.Type) []capability.Type {
	done := make(map[capability.Type]bool, len(registered))
	for _, t := range registered {
		done[t] = true
	}
	var missing []capability.Type
	for _, t := range declared {
		if !done[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

func joinTypes(types []capability.Type) string {
	if len(types) == 0 {
		return "none"
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
