// Package oauth implements the delegated authentication subsystem of
// synapse-mcp: the OAuth 2.0 relying-party flow against the Synapse identity
// provider, per-session credential storage, and token refresh.
//
// # Flow
//
//  1. A client calls a tool without a usable credential.
//  2. The request authenticator returns an "auth required" challenge
//     containing an authorization URL produced by Flow.Begin.
//  3. The user authenticates in a browser; the identity provider redirects
//     to the /oauth/callback endpoint with an authorization code.
//  4. Flow.HandleCallback consumes the single-use state token, exchanges the
//     code for tokens, and stores a Credential keyed by session ID.
//  5. The client retries; Provider.AccessToken returns the stored token,
//     refreshing it transparently when it nears expiry.
//
// # Components
//
//   - CredentialStore: per-session credential records, in memory or Redis
//   - StateStore: single-use pending-authorization state tokens (CSRF)
//   - Client: authorization URL construction, code exchange, token refresh
//   - Flow: the begin/callback state machine
//   - Provider: resolves the access token to attach to an outbound request
//   - Handler: HTTP handler for the browser-facing callback endpoint
//
// # Security
//
// State tokens are 32 bytes of crypto/rand entropy, single-use, and expire
// after a few minutes. Credentials never appear in logs; session IDs are
// truncated before logging. In static-token mode this package is bypassed
// entirely except for the Provider, which hands out the configured token.
package oauth
