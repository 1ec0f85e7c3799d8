package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"svcore/internal/capability"

	"github.com/Masterminds/semver/v3"
)

// DefaultVersion is assigned to descriptors submitted without a version.
const DefaultVersion = "1.0.0"

// InitFunc is a package's initialization routine. It runs on its own
// goroutine once every required capability is present, and may publish
// capabilities through scope. It should honour ctx cancellation.
type InitFunc func(ctx context.Context, scope *capability.Scope) error

// Descriptor describes one registrable package.
type Descriptor struct {
	// ID uniquely identifies the package, e.g. "com.svcore.auth".
	ID string
	// Version is a semantic version; empty means DefaultVersion.
	Version string
	// Requires lists capabilities that must be registered before Init runs.
	Requires []capability.Type
	// Provides optionally lists the capabilities Init will register. When set,
	// Init may register only these, and other packages may not register them.
	Provides []capability.Type
	// Init is the asynchronous initialization entry point.
	Init InitFunc
}

func (d Descriptor) clone() *Descriptor {
	c := d
	c.Requires = dedupeTypes(d.Requires)
	c.Provides = dedupeTypes(d.Provides)
	return &c
}

func (d *Descriptor) validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: package id is required", ErrInvalidDescriptor)
	}
	if d.Init == nil {
		return fmt.Errorf("%w: package %q has no init routine", ErrInvalidDescriptor, d.ID)
	}
	if d.Version == "" {
		d.Version = DefaultVersion
	}
	if _, err := semver.NewVersion(d.Version); err != nil {
		return fmt.Errorf("%w: package %q version %q: %v", ErrInvalidDescriptor, d.ID, d.Version, err)
	}
	for _, t := range append(slices.Clone(d.Requires), d.Provides...) {
		if t == "" {
			return fmt.Errorf("%w: package %q declares an empty capability type", ErrInvalidDescriptor, d.ID)
		}
	}
	return nil
}

func dedupeTypes(types []capability.Type) []capability.Type {
	if len(types) == 0 {
		return nil
	}
	seen := make(map[capability.Type]struct{}, len(types))
	result := make([]capability.Type, 0, len(types))
	for _, t := range types {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

// Registration is the handle returned by Submit. It allows a package to
// extend its descriptor until initialization begins.
type Registration struct {
	orch *Orchestrator
	id   string
}

// ID returns the package identity.
func (r *Registration) ID() string {
	return r.id
}

// DeclareDependency adds capType to the package's required capabilities.
// A dependency nobody provides is not an error here; it surfaces when the
// run cannot make progress.
func (r *Registration) DeclareDependency(capType capability.Type) error {
	return r.orch.amend(r.id, func(d *Descriptor) {
		d.Requires = dedupeTypes(append(d.Requires, capType))
	}, capType)
}

// DeclareProvides adds capType to the capabilities the package publishes.
func (r *Registration) DeclareProvides(capType capability.Type) error {
	return r.orch.amend(r.id, func(d *Descriptor) {
		d.Provides = dedupeTypes(append(d.Provides, capType))
	}, capType)
}
