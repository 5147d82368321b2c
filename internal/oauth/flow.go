package oauth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"synapse-mcp/pkg/logging"
)

// Flow drives the delegated authorization flow: Begin hands out an
// authorization URL, HandleCallback turns the returned code into a stored
// credential. Both terminal outcomes of a callback (success and failure)
// consume the state token, so retrying always starts with a fresh Begin.
type Flow struct {
	client *Client
	states *StateStore
	creds  CredentialStore
}

// NewFlow creates a flow controller.
func NewFlow(client *Client, states *StateStore, creds CredentialStore) *Flow {
	return &Flow{
		client: client,
		states: states,
		creds:  creds,
	}
}

// Begin starts an authorization flow for the given client session (which
// may be empty for flows started outside an MCP session). It returns the
// authorization URL to open in a browser and the state token embedded in it.
func (f *Flow) Begin(_ context.Context, sessionID string) (string, string, error) {
	state, err := f.states.Generate(sessionID, f.client.Scope())
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := f.client.AuthCodeURL(state)
	logging.Info("OAuth", "Started authorization flow for session=%s",
		logging.TruncateSessionID(sessionID))
	return authURL, state, nil
}

// HandleCallback processes the identity provider redirect. The state token
// is consumed before anything else, so replays and unknown states fail
// without any outbound call. On success the credential is stored and the
// session ID it is bound to is returned.
func (f *Flow) HandleCallback(ctx context.Context, state, code, errParam, errDesc string) (string, error) {
	pending := f.states.Consume(state)
	if pending == nil {
		return "", fmt.Errorf("callback rejected: %w", ErrInvalidState)
	}

	if errParam != "" {
		logging.Warn("OAuth", "Authorization callback returned error: %s - %s", errParam, errDesc)
		return "", &TokenExchangeError{Reason: errParam, Description: errDesc}
	}
	if code == "" {
		return "", &TokenExchangeError{Reason: "missing authorization code"}
	}

	cred, err := f.client.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	sessionID := pending.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	cred.SessionID = sessionID

	if err := f.creds.Put(ctx, cred); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}

	logging.Info("OAuth", "Completed authorization for session=%s",
		logging.TruncateSessionID(sessionID))
	return sessionID, nil
}
