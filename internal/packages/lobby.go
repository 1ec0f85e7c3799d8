package packages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"svcore/internal/capability"
	"svcore/internal/orchestrator"
	"svcore/internal/transport"
)

// LobbySummary is a lobby listed by the backend.
type LobbySummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// LobbyClient is the published lobby-client capability.
type LobbyClient struct {
	SessionID string

	sender transport.Sender
	token  *AccessToken
}

// Lobbies lists open lobbies, optionally filtered by name prefix.
func (c *LobbyClient) Lobbies(ctx context.Context, prefix string) ([]LobbySummary, error) {
	req := &transport.Request{
		Path:   "lobby/lobbies",
		Header: bearer(c.token),
	}
	if prefix != "" {
		req.Query = url.Values{"prefix": []string{prefix}}
	}

	resp, err := transport.Await(ctx, c.sender.Send(ctx, req))
	if err != nil {
		return nil, fmt.Errorf("list lobbies: %w", err)
	}
	var body struct {
		Lobbies []LobbySummary `json:"lobbies"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body.Lobbies, nil
}

// Lobby opens a lobby session with the access token.
func Lobby(sender transport.Sender) orchestrator.Descriptor {
	return orchestrator.Descriptor{
		ID:       LobbyID,
		Version:  "1.0.0",
		Requires: []capability.Type{AccessTokenType},
		Provides: []capability.Type{LobbyClientType},
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
				Path:   "lobby/sessions",
				Header: bearer(token),
			}))
			if err != nil {
				return fmt.Errorf("open lobby session: %w", err)
			}
			var body struct {
				SessionID string `json:"sessionId"`
			}
			if err := resp.Decode(&body); err != nil {
				return err
			}

			return scope.Register(LobbyClientType, &LobbyClient{
				SessionID: body.SessionID,
				sender:    sender,
				token:     token,
			})
		},
	}
}
