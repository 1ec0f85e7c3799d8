// Package orchestrator initializes service packages in dependency order.
//
// During bootstrap each package submits a Descriptor naming the capability
// types it requires and the ones it provides. Submission order carries no
// meaning. Once BeginInitialization is called the orchestrator stops
// accepting descriptors and runs every package's Init as soon as all of its
// required capabilities are present in the shared capability registry.
// Independent packages run concurrently.
//
// # Failure Handling
//
// A failing Init never stops unrelated packages. Packages that depend on a
// failed package, directly or transitively, are marked Skipped. Packages
// whose requirements can never be met fail with an UnresolvedDependencyError
// naming the missing types; declared dependency cycles are reported the same
// way, with the cycle members attached.
//
// # Capability Writes
//
// Init receives a capability.Scope that only accepts the types the package
// declared in Provides. Declared types are claimed before any Init runs, so a
// second provider of the same type is rejected up front.
//
// # Usage
//
//	o := orchestrator.New(orchestrator.Config{PackageTimeout: 30 * time.Second})
//	reg, err := o.Submit(orchestrator.Descriptor{
//		ID:       "lobby",
//		Requires: []capability.Type{"access-token"},
//		Provides: []capability.Type{"lobby-client"},
//		Init:     initLobby,
//	})
//	...
//	report, err := o.BeginInitialization(ctx)
//
// BeginInitialization returns a Report with one Outcome per package. Its
// error is reserved for misuse, such as calling it twice.
//
// Per-package transitions are logged at debug level only. Callers that want
// them surfaced subscribe with SubscribeToStateChanges.
package orchestrator
