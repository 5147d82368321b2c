package oauth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"synapse-mcp/pkg/logging"
)

// Provider resolves the access token to attach to an outbound Synapse
// request. In static-token mode it always returns the configured token;
// in delegated mode it looks up the session credential and refreshes it
// when it is within the expiry margin.
type Provider struct {
	staticToken RedactedToken

	store  CredentialStore
	client *Client

	// refreshGroup collapses concurrent refreshes for the same session
	// into a single token endpoint call.
	refreshGroup singleflight.Group
}

// NewStaticProvider creates a provider that returns the given token for
// every session. Static tokens are never refreshed and never expire from
// the provider's point of view.
func NewStaticProvider(token string) *Provider {
	return &Provider{staticToken: NewRedactedToken(token)}
}

// NewDelegatedProvider creates a provider backed by per-session credentials.
func NewDelegatedProvider(store CredentialStore, client *Client) *Provider {
	return &Provider{store: store, client: client}
}

// Static reports whether this provider runs in static-token mode.
func (p *Provider) Static() bool {
	return !p.staticToken.IsEmpty()
}

// AccessToken returns a currently valid access token for the session.
//
// In delegated mode, a credential within the expiry margin triggers exactly
// one refresh attempt. A successful refresh updates the store; a failed one
// removes the credential and returns ErrCredentialExpired, forcing a new
// authorization flow.
func (p *Provider) AccessToken(ctx context.Context, sessionID string) (string, error) {
	if p.Static() {
		return p.staticToken.Value(), nil
	}

	cred, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if !cred.Expired(tokenExpiryMargin) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		logging.Debug("OAuth", "Credential expired without refresh token for session=%s",
			logging.TruncateSessionID(sessionID))
		if err := p.store.Delete(ctx, sessionID); err != nil {
			logging.Error("OAuth", err, "Failed to remove expired credential")
		}
		return "", ErrCredentialExpired
	}

	refreshed, err, _ := p.refreshGroup.Do(sessionID, func() (interface{}, error) {
		return p.refresh(ctx, sessionID, cred)
	})
	if err != nil {
		return "", err
	}

	return refreshed.(*Credential).AccessToken, nil
}

// refresh performs the single refresh attempt for an expired credential.
func (p *Provider) refresh(ctx context.Context, sessionID string, cred *Credential) (*Credential, error) {
	start := time.Now()

	newCred, err := p.client.Refresh(ctx, cred)
	if err != nil {
		logging.Warn("OAuth", "Token refresh failed for session=%s: %v",
			logging.TruncateSessionID(sessionID), err)
		if derr := p.store.Delete(ctx, sessionID); derr != nil {
			logging.Error("OAuth", derr, "Failed to remove credential after refresh failure")
		}
		return nil, fmt.Errorf("refresh rejected by identity provider: %w", ErrCredentialExpired)
	}

	if err := p.store.Put(ctx, newCred); err != nil {
		return nil, fmt.Errorf("failed to store refreshed credential: %w", err)
	}

	logging.Info("OAuth", "Refreshed token for session=%s in %v",
		logging.TruncateSessionID(sessionID), time.Since(start))
	return newCred, nil
}
