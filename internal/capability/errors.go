package capability

import (
	"errors"
	"fmt"
)

// ErrInvalidCapability is returned when a registration has an empty type or a nil instance.
var ErrInvalidCapability = errors.New("invalid capability")

// DuplicateCapabilityError is returned when a second provider tries to
// register (or claim) a type that already has one.
type DuplicateCapabilityError struct {
	Type          Type
	ExistingOwner string
	RejectedOwner string
}

func (e *DuplicateCapabilityError) Error() string {
	return fmt.Sprintf("capability %q already provided by %q (rejected provider %q)",
		e.Type, e.ExistingOwner, e.RejectedOwner)
}

// MissingCapabilityError is returned by lookups for a type nobody registered.
type MissingCapabilityError struct {
	Type Type
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("capability %q is not registered", e.Type)
}

// OwnershipError is returned when a package writes a type it does not own:
// either another package declared it, or the writer declared a fixed set of
// provided types that does not include it.
type OwnershipError struct {
	Type   Type
	Owner  string
	Writer string
}

func (e *OwnershipError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("%q may not register capability %q: not among its declared capabilities", e.Writer, e.Type)
	}
	return fmt.Sprintf("%q may not register capability %q: owned by %q", e.Writer, e.Type, e.Owner)
}

// WrongTypeError is returned by Lookup when the registered instance does not
// satisfy the requested Go type.
type WrongTypeError struct {
	Type Type
	Want string
	Got  string
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("capability %q has type %s, want %s", e.Type, e.Got, e.Want)
}

// IsMissing reports whether err is (or wraps) a MissingCapabilityError.
func IsMissing(err error) bool {
	var missing *MissingCapabilityError
	return errors.As(err, &missing)
}

// IsDuplicate reports whether err is (or wraps) a DuplicateCapabilityError.
func IsDuplicate(err error) bool {
	var dup *DuplicateCapabilityError
	return errors.As(err, &dup)
}
