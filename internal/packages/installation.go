package packages

import (
	"context"
	"errors"
	"fmt"

	"svcore/internal/capability"
	"svcore/internal/idstore"
	"svcore/internal/orchestrator"
	"svcore/pkg/logging"

	"github.com/google/uuid"
)

// installationKey is the identifier store key for the installation id.
const installationKey = "installation-id"

// Installation provides the installation id, creating and persisting a new
// one on first run.
func Installation(store idstore.Store) orchestrator.Descriptor {
	return orchestrator.Descriptor{
		ID:       InstallationID,
		Version:  "1.0.0",
		Provides: []capability.Type{InstallationIDType},
		Init: func(ctx context.Context, scope *capability.Scope) error {
			if store == nil {
				return errors.New("no identifier store configured")
			}

			id, ok := store.GetString(installationKey)
			if ok {
				if _, err := uuid.Parse(id); err != nil {
					logging.Warn("Installation", "Stored installation id %q is invalid, generating a new one", id)
					ok = false
				}
			}
			if !ok {
				id = uuid.NewString()
				if err := store.SetString(installationKey, id); err != nil {
					return fmt.Errorf("persist installation id: %w", err)
				}
				logging.Info("Installation", "Created installation id %s", id)
			}

			return scope.Register(InstallationIDType, id)
		},
	}
}
