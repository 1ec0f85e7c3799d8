package capability

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"svcore/pkg/logging"
)

// Type identifies a capability contract, e.g. "access-token". Types are
// compared by value.
type Type string

// HostOwner is the owner recorded for capabilities registered directly on the
// Registry rather than through a package Scope.
const HostOwner = "host"

// Entry describes one registered capability.
type Entry struct {
	Type         Type
	Owner        string
	Instance     any
	RegisteredAt time.Time
}

// Registry maps each capability type to exactly one live instance.
type Registry struct {
	mu      sync.RWMutex
	entries map[Type]*Entry
	claims  map[Type]string // type -> package that declared it provides the type

	// Callbacks
	onRegister []func(entry Entry)
}

// NewRegistry creates a new capability registry
func NewRegistry() *Registry {
	return &Registry{
		entries:    make(map[Type]*Entry),
		claims:     make(map[Type]string),
		onRegister: []func(entry Entry){},
	}
}

// Register registers an instance on behalf of the host application.
func (r *Registry) Register(capType Type, instance any) error {
	return r.register(HostOwner, capType, instance)
}

func (r *Registry) register(owner string, capType Type, instance any) error {
	if capType == "" {
		return fmt.Errorf("%w: empty capability type", ErrInvalidCapability)
	}
	if instance == nil {
		return fmt.Errorf("%w: nil instance for %q", ErrInvalidCapability, capType)
	}

	r.mu.Lock()
	if existing, exists := r.entries[capType]; exists {
		r.mu.Unlock()
		return &DuplicateCapabilityError{Type: capType, ExistingOwner: existing.Owner, RejectedOwner: owner}
	}
	if claimant, claimed := r.claims[capType]; claimed && claimant != owner {
		r.mu.Unlock()
		return &OwnershipError{Type: capType, Owner: claimant, Writer: owner}
	}

	entry := &Entry{
		Type:         capType,
		Owner:        owner,
		Instance:     instance,
		RegisteredAt: time.Now(),
	}
	r.entries[capType] = entry

	callbacks := make([]func(Entry), len(r.onRegister))
	copy(callbacks, r.onRegister)
	r.mu.Unlock()

	logging.Debug("Registry", "Registered capability %s (owner: %s)", capType, owner)

	// Notify observers outside the lock so they may query the registry.
	for _, callback := range callbacks {
		callback(*entry)
	}

	return nil
}

// Claim reserves capType for owner before it is registered, so no other
// package can provide it. Claiming a type already claimed or registered by
// another owner returns a DuplicateCapabilityError.
func (r *Registry) Claim(owner string, capType Type) error {
	if capType == "" {
		return fmt.Errorf("%w: empty capability type", ErrInvalidCapability)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if claimant, claimed := r.claims[capType]; claimed && claimant != owner {
		return &DuplicateCapabilityError{Type: capType, ExistingOwner: claimant, RejectedOwner: owner}
	}
	if existing, exists := r.entries[capType]; exists && existing.Owner != owner {
		return &DuplicateCapabilityError{Type: capType, ExistingOwner: existing.Owner, RejectedOwner: owner}
	}
	r.claims[capType] = owner
	return nil
}

// Get retrieves the instance registered for capType.
func (r *Registry) Get(capType Type) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[capType]
	if !exists {
		return nil, &MissingCapabilityError{Type: capType}
	}
	return entry.Instance, nil
}

// Has reports whether capType is registered.
func (r *Registry) Has(capType Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[capType]
	return exists
}

// Missing returns the subset of types that are not registered, preserving order.
func (r *Registry) Missing(types []Type) []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []Type
	for _, t := range types {
		if _, exists := r.entries[t]; !exists {
			missing = append(missing, t)
		}
	}
	return missing
}

// Owner returns the owner of a registered capability.
func (r *Registry) Owner(capType Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[capType]
	if !exists {
		return "", false
	}
	return entry.Owner, true
}

// Types returns all registered types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Type, 0, len(r.entries))
	for t := range r.entries {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Entries returns a snapshot of all registrations sorted by type.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// OnRegister adds a callback for capability registration
func (r *Registry) OnRegister(callback func(entry Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRegister = append(r.onRegister, callback)
}

// Reset drops every registration, claim and callback. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[Type]*Entry)
	r.claims = make(map[Type]string)
	r.onRegister = []func(entry Entry){}
}

// Scope returns a view of the registry that writes on behalf of owner. When
// allowed is non-empty the scope may only register those types.
func (r *Registry) Scope(owner string, allowed []Type) *Scope {
	s := &Scope{
		registry: r,
		owner:    owner,
	}
	if len(allowed) > 0 {
		s.allowed = make(map[Type]struct{}, len(allowed))
		for _, t := range allowed {
			s.allowed[t] = struct{}{}
		}
	}
	return s
}
