package packages

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"svcore/internal/capability"
	"svcore/internal/orchestrator"
	"svcore/internal/transport"
)

// RelayClient is the published relay-client capability.
type RelayClient struct {
	AllocationID string
	Address      string

	sender transport.Sender
	token  *AccessToken
}

// Release frees the relay allocation.
func (c *RelayClient) Release(ctx context.Context) error {
	_, err := transport.Await(ctx, c.sender.Send(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   "relay/allocations/" + c.AllocationID,
		Header: bearer(c.token),
	}))
	if err != nil {
		return fmt.Errorf("release relay allocation %s: %w", c.AllocationID, err)
	}
	return nil
}

// Relay allocates a relay server with the access token.
func Relay(sender transport.Sender) orchestrator.Descriptor {
	return orchestrator.Descriptor{
		ID:       RelayID,
		Version:  "1.0.0",
		Requires: []capability.Type{AccessTokenType},
		Provides: []capability.Type{RelayClientType},
		Init: func(ctx context.Context, scope *capability.Scope) error {
			if sender == nil {
				return errors.New("no transport configured")
			}
			token, err := capability.Lookup[*AccessToken](scope, AccessTokenType)
			if err != nil {
				return err
			}

			resp, err := transport.Await(ctx, sender.Send(ctx, &transport.Request{
				Method: http.MethodPost,
				Path:   "relay/allocations",
				Header: bearer(token),
			}))
			if err != nil {
				return fmt.Errorf("allocate relay: %w", err)
			}
			var body struct {
				AllocationID string `json:"allocationId"`
				Address      string `json:"address"`
			}
			if err := resp.Decode(&body); err != nil {
				return err
			}
			if body.Address == "" {
				return errors.New("relay allocation returned no address")
			}

			return scope.Register(RelayClientType, &RelayClient{
				AllocationID: body.AllocationID,
				Address:      body.Address,
				sender:       sender,
				token:        token,
			})
		},
	}
}
