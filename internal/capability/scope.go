package capability

import (
	"fmt"
	"sync"
)

// Reader is the read side of the registry.
type Reader interface {
	Get(capType Type) (any, error)
	Has(capType Type) bool
}

// Scope is the registry handle given to a single package during its
// initialization. Writes are attributed to the package and checked against
// its ownership.
type Scope struct {
	registry *Registry
	owner    string
	allowed  map[Type]struct{}

	mu         sync.Mutex
	registered []Type
}

// Owner returns the package identity this scope writes for.
func (s *Scope) Owner() string {
	return s.owner
}

// Register publishes instance under capType on behalf of the scope's owner.
func (s *Scope) Register(capType Type, instance any) error {
	if s.allowed != nil {
		if _, ok := s.allowed[capType]; !ok {
			return &OwnershipError{Type: capType, Writer: s.owner}
		}
	}
	if err := s.registry.register(s.owner, capType, instance); err != nil {
		return err
	}

	s.mu.Lock()
	s.registered = append(s.registered, capType)
	s.mu.Unlock()
	return nil
}

// Get retrieves a registered capability.
func (s *Scope) Get(capType Type) (any, error) {
	return s.registry.Get(capType)
}

// Has reports whether capType is registered.
func (s *Scope) Has(capType Type) bool {
	return s.registry.Has(capType)
}

// Registered returns the types this scope has registered so far.
func (s *Scope) Registered() []Type {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Type, len(s.registered))
	copy(result, s.registered)
	return result
}

// Lookup fetches capType and asserts it to T.
func Lookup[T any](r Reader, capType Type) (T, error) {
	var zero T

	instance, err := r.Get(capType)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &WrongTypeError{
			Type: capType,
			Want: fmt.Sprintf("%T", (*T)(nil))[1:],
			Got:  fmt.Sprintf("%T", instance),
		}
	}
	return typed, nil
}
