package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"synapse-mcp/internal/config"
	"synapse-mcp/pkg/logging"
)

// Client talks to the identity provider: it builds authorization URLs and
// performs code exchange and token refresh against the token endpoint.
type Client struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewClient creates an identity provider client from the delegated-mode
// configuration.
func NewClient(cfg config.OAuthConfig) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Scope returns the configured scope string.
func (c *Client) Scope() string {
	return strings.Join(c.conf.Scopes, " ")
}

// AuthCodeURL builds the authorization URL for the given state token. The
// client ID, redirect URI, scope, and state all travel as query parameters.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens. Failures are returned
// as a TokenExchangeError; the code is single-use, so there is no retry.
func (c *Client) Exchange(ctx context.Context, code string) (*Credential, error) {
	token, err := c.conf.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		logging.Error("OAuth", err, "Authorization code exchange failed")
		return nil, &TokenExchangeError{Reason: "code exchange rejected", Err: err}
	}

	return c.credentialFromToken(token, nil), nil
}

// Refresh obtains a new access token using the credential's refresh token.
// The previous credential is passed so the refresh token can be preserved
// when the provider omits it from the refresh response.
func (c *Client) Refresh(ctx context.Context, prev *Credential) (*Credential, error) {
	src := c.conf.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{
		RefreshToken: prev.RefreshToken,
	})

	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	return c.credentialFromToken(token, prev), nil
}

// credentialFromToken converts an oauth2 token into a credential record.
func (c *Client) credentialFromToken(token *oauth2.Token, prev *Credential) *Credential {
	cred := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IssuedAt:     time.Now(),
		ExpiresAt:    token.Expiry,
		Scope:        c.conf.Scopes,
	}
	if prev != nil {
		cred.SessionID = prev.SessionID
		if cred.RefreshToken == "" {
			cred.RefreshToken = prev.RefreshToken
		}
	}
	return cred
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
