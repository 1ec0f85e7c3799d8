package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"svcore/internal/capability"
)

var (
	// ErrNotCollecting is returned when descriptors change after initialization began.
	ErrNotCollecting = errors.New("orchestrator is no longer collecting packages")

	// ErrAlreadyStarted is returned by a second BeginInitialization call.
	ErrAlreadyStarted = errors.New("initialization already started")

	// ErrInvalidDescriptor is returned by Submit for malformed descriptors.
	ErrInvalidDescriptor = errors.New("invalid package descriptor")

	// ErrSkipped marks outcomes of packages that never ran.
	ErrSkipped = errors.New("package skipped")

	// ErrProvidesNotMet is wrapped when a package returned successfully without
	// registering every capability it declared.
	ErrProvidesNotMet = errors.New("declared capabilities were not registered")
)

// DuplicateRegistrationError is returned when the same package identity is submitted twice.
type DuplicateRegistrationError struct {
	Package string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("package %q is already registered", e.Package)
}

// UnresolvedDependencyError reports a package that could not become ready
// because required capabilities were never provided. Cycle is set when the
// package was found on a declared dependency cycle.
type UnresolvedDependencyError struct {
	Package string
	Missing []capability.Type
	Cycle   []string
}

func (e *UnresolvedDependencyError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		missing[i] = string(t)
	}

	msg := fmt.Sprintf("package %q has unresolved dependencies: %s", e.Package, strings.Join(missing, ", "))
	if len(e.Cycle) > 0 {
		msg += fmt.Sprintf(" (dependency cycle among: %s)", strings.Join(e.Cycle, ", "))
	}
	return msg
}

// PackageInitializationError wraps the error returned (or panic raised) by a
// package's own initialization routine.
type PackageInitializationError struct {
	Package string
	Cause   error
}

func (e *PackageInitializationError) Error() string {
	return fmt.Sprintf("package %q failed to initialize: %v", e.Package, e.Cause)
}

func (e *PackageInitializationError) Unwrap() error {
	return e.Cause
}
