package packages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"svcore/internal/capability"
	"svcore/internal/orchestrator"
	"svcore/internal/transport"
	"svcore/pkg/logging"
)

// AccessToken is the published access-token capability.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry. Tokens without an
// expiry never expire.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

type tokenRequest struct {
	InstallationID string `json:"installationId"`
	Environment    string `json:"environment"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"` // seconds
}

// Auth exchanges the installation id for an access token.
func Auth(sender transport.Sender) orchestrator.Descriptor {
	return orchestrator.Descriptor{
		ID:       AuthID,
		Version:  "1.2.0",
		Requires: []capability.Type{InstallationIDType, EnvironmentType},
		Provides: []capability.Type{AccessTokenType},
		Init: func(ctx context.Context, scope *capability.Scope) error {
			if sender == nil {
				return errors.New("no transport configured")
			}

			installationID, err := capability.Lookup[string](scope, InstallationIDType)
			if err != nil {
				return err
			}
			env, err := capability.Lookup[*EnvironmentInfo](scope, EnvironmentType)
			if err != nil {
				return err
			}

			requested := time.Now()
			resp, err := transport.Await(ctx, sender.Send(ctx, &transport.Request{
				Method: http.MethodPost,
				Path:   "auth/token",
				Body: tokenRequest{
					InstallationID: installationID,
					Environment:    env.Name,
				},
			}))
			if err != nil {
				return fmt.Errorf("request access token: %w", err)
			}

			var body tokenResponse
			if err := resp.Decode(&body); err != nil {
				return err
			}
			if body.AccessToken == "" {
				return errors.New("token endpoint returned an empty access token")
			}

			token := &AccessToken{Value: body.AccessToken}
			if body.ExpiresIn > 0 {
				token.ExpiresAt = requested.Add(time.Duration(body.ExpiresIn) * time.Second)
			}
			logging.Debug("Auth", "Obtained access token for %s (expires %v)", env.Name, token.ExpiresAt)

			return scope.Register(AccessTokenType, token)
		},
	}
}
