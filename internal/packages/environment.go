package packages

import (
	"context"
	"errors"

	"svcore/internal/capability"
	"svcore/internal/orchestrator"
)

// EnvironmentInfo is the published environment capability.
type EnvironmentInfo struct {
	Name string
}

// Environment provides the name of the backend environment.
func Environment(name string) orchestrator.Descriptor {
	return orchestrator.Descriptor{
		ID:       EnvironmentID,
		Version:  "1.0.0",
		Provides: []capability.Type{EnvironmentType},
		Init: func(ctx context.Context, scope *capability.Scope) error {
			if name == "" {
				return errors.New("no environment configured")
			}
			return scope.Register(EnvironmentType, &EnvironmentInfo{Name: name})
		},
	}
}
