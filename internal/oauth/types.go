package oauth

import "time"

// tokenExpiryMargin is the margin applied when checking credential
// expiration. This accounts for clock skew between systems and for network
// latency on the outbound Synapse call the token will be attached to.
const tokenExpiryMargin = 30 * time.Second

// Credential is a per-session credential record.
type Credential struct {
	// SessionID identifies the client session this credential belongs to.
	SessionID string `json:"session_id"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// IssuedAt orders writes for the same session: a write carrying an
	// older IssuedAt than the stored record (or than a recent delete) is
	// stale and must be dropped.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is the access token expiry. The zero value means the
	// token never expires and is never refreshed (static tokens).
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	Scope []string `json:"scope,omitempty"`
}

// Expired reports whether the access token is expired or will expire within
// the given margin. Credentials without an expiry never expire.
func (c *Credential) Expired(margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(c.ExpiresAt)
}

// PendingAuth tracks an authorization flow between Begin and the callback.
type PendingAuth struct {
	// State is the single-use random token linking the callback to this
	// pending flow.
	State string `json:"state"`

	// SessionID is the client session that initiated the flow, when known.
	// Empty for flows started outside an MCP session; a fresh session ID
	// is minted at callback time in that case.
	SessionID string `json:"session_id,omitempty"`

	Scope     string    `json:"scope,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthChallenge is the structured payload returned to MCP clients when a
// request cannot be authenticated. Agents parse it to find the
// authorization URL without reading server logs.
type AuthChallenge struct {
	// Status is always "auth_required".
	Status string `json:"status"`

	// AuthURL is the authorization URL to open in a browser. Empty in
	// static-token mode, where the operator must fix the configured token.
	AuthURL string `json:"auth_url,omitempty"`

	// Message is a human-readable instruction.
	Message string `json:"message"`
}

// NewAuthChallenge creates a challenge pointing at an authorization URL.
func NewAuthChallenge(authURL, message string) *AuthChallenge {
	return &AuthChallenge{
		Status:  "auth_required",
		AuthURL: authURL,
		Message: message,
	}
}
