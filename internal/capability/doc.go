// Package capability provides the shared capability registry used by
// svcore packages.
//
// A capability is a named service contract, such as "access-token" or
// "installation-id", that exactly one provider satisfies at a time. Packages
// publish capabilities while they initialize and consume capabilities that
// other packages (or the host application) published earlier.
//
// # Core Concepts
//
// Type: A string identifier for a capability contract, compared by value.
//
// Registry: A mutex-guarded map from Type to a single live instance. A second
// registration for the same Type fails with DuplicateCapabilityError and the
// first instance stays retrievable. Lookups for unregistered types fail with
// MissingCapabilityError rather than blocking.
//
// Scope: The handle a package receives during initialization. Writes through
// a Scope are attributed to the package, and the registry enforces a single
// writer per Type: a type claimed by one package cannot be written by another,
// and a package that declared the types it provides cannot write others.
//
// # Usage
//
// The host may seed collaborators before initialization:
//
//	reg := capability.NewRegistry()
//	_ = reg.Register("transport", client)
//
// Packages publish and consume through their scope:
//
//	func initAuth(ctx context.Context, scope *capability.Scope) error {
//	    id, err := capability.Lookup[string](scope, "installation-id")
//	    if err != nil {
//	        return err
//	    }
//	    return scope.Register("access-token", fetchToken(ctx, id))
//	}
//
// # Thread Safety
//
// All Registry and Scope methods are safe for concurrent use. Writes take an
// exclusive lock; reads share a read lock. The registry stores references, so
// mutation of a published instance is the publishing package's concern.
package capability
