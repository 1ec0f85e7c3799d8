// Package packages contains the service packages bundled with svcore.
//
// Each package is a plain orchestrator.Descriptor. RegisterBuiltins submits
// all of them; the orchestrator works out the order.
package packages

import (
	"fmt"
	"net/http"

	"svcore/internal/capability"
	"svcore/internal/idstore"
	"svcore/internal/orchestrator"
	"svcore/internal/transport"
)

// Capability types published by the bundled packages.
const (
	InstallationIDType capability.Type = "installation-id"
	EnvironmentType    capability.Type = "environment"
	AccessTokenType    capability.Type = "access-token"
	LobbyClientType    capability.Type = "lobby-client"
	RelayClientType    capability.Type = "relay-client"
)

// Package identities.
const (
	InstallationID = "installation"
	EnvironmentID  = "environment"
	AuthID         = "auth"
	LobbyID        = "lobby"
	RelayID        = "relay"
)

// Deps are the collaborators the bundled packages need.
type Deps struct {
	Store       idstore.Store
	Sender      transport.Sender
	Environment string
}

// Builtins returns the bundled descriptors in no particular dependency order.
func Builtins(deps Deps) []orchestrator.Descriptor {
	return []orchestrator.Descriptor{
		Relay(deps.Sender),
		Lobby(deps.Sender),
		Auth(deps.Sender),
		Environment(deps.Environment),
		Installation(deps.Store),
	}
}

// RegisterBuiltins submits every bundled package not listed in disabled and
// returns the submitted IDs.
func RegisterBuiltins(o *orchestrator.Orchestrator, deps Deps, disabled []string) ([]string, error) {
	skip := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		skip[id] = true
	}

	var submitted []string
	for _, desc := range Builtins(deps) {
		if skip[desc.ID] {
			continue
		}
		if _, err := o.Submit(desc); err != nil {
			return submitted, fmt.Errorf("register bundled package %s: %w", desc.ID, err)
		}
		submitted = append(submitted, desc.ID)
	}
	return submitted, nil
}

// IDs lists the bundled package identities.
func IDs() []string {
	return []string{AuthID, EnvironmentID, InstallationID, LobbyID, RelayID}
}

func bearer(token *AccessToken) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token.Value}}
}
