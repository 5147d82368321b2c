package config

import "synapse-mcp/pkg/logging"

// ResolveMode decides the authentication mode for this process.
//
// A personal access token always wins: when one is present the server runs
// in static-token mode even if delegated parameters are also configured
// (they are logged as ignored, not treated as an error, since the token is
// an explicit development override).
//
// Without a token, all three delegated parameters are required and any
// missing one is a fatal ConfigurationError.
func (c *Config) ResolveMode() (AuthMode, error) {
	if c.HasStaticToken() {
		if c.HasDelegatedConfig() {
			logging.Info("Config", "Personal access token present, ignoring delegated OAuth configuration")
		}
		return AuthModeStaticToken, nil
	}

	if c.OAuth.ClientID == "" {
		return 0, NewConfigurationError("SYNAPSE_OAUTH_CLIENT_ID",
			"delegated mode requires a client ID (or set SYNAPSE_PAT for static-token mode)")
	}
	if c.OAuth.ClientSecret == "" {
		return 0, NewConfigurationError("SYNAPSE_OAUTH_CLIENT_SECRET",
			"delegated mode requires a client secret (or set SYNAPSE_PAT for static-token mode)")
	}
	if c.OAuth.RedirectURI == "" {
		return 0, NewConfigurationError("SYNAPSE_OAUTH_REDIRECT_URI",
			"delegated mode requires a redirect URI (or set SYNAPSE_PAT for static-token mode)")
	}

	return AuthModeDelegated, nil
}

// Validate checks parameters that apply regardless of mode.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return NewConfigurationError("MCP_PORT", "port must be between 1 and 65535")
	}
	switch c.Transport {
	case TransportStreamableHTTP, TransportStdio:
	default:
		return NewConfigurationError("transport", "transport must be streamable-http or stdio")
	}
	if c.SynapseBaseURL == "" {
		return NewConfigurationError("SYNAPSE_BASE_URL", "Synapse base URL must not be empty")
	}
	return nil
}
