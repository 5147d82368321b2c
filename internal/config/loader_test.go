package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv(envMap(nil))

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultTransport, cfg.Transport)
	assert.Equal(t, DefaultPublicURL, cfg.PublicURL)
	assert.Equal(t, DefaultSynapseBaseURL, cfg.SynapseBaseURL)
	assert.Equal(t, DefaultAuthURL, cfg.OAuth.AuthURL)
	assert.Equal(t, DefaultTokenURL, cfg.OAuth.TokenURL)
	assert.False(t, cfg.HasStaticToken())
	assert.False(t, cfg.HasDelegatedConfig())
}

func TestLoadFromEnv_EnvOverrides(t *testing.T) {
	cfg := LoadFromEnv(envMap(map[string]string{
		"SYNAPSE_PAT":      "pat-token",
		"MCP_SERVER_URL":   "https://mcp.example.org",
		"SYNAPSE_BASE_URL": "https://repo-staging.example.org",
		"REDIS_URL":        "redis://127.0.0.1:6379/0",
		"MCP_HOST":         "0.0.0.0",
		"MCP_PORT":         "8080",
	}))

	assert.Equal(t, "pat-token", cfg.PersonalAccessToken)
	assert.Equal(t, "https://mcp.example.org", cfg.PublicURL)
	assert.Equal(t, "https://repo-staging.example.org", cfg.SynapseBaseURL)
	assert.Equal(t, "redis://127.0.0.1:6379/0", cfg.Redis.URL)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadFromEnv_InvalidPortIgnored(t *testing.T) {
	cfg := LoadFromEnv(envMap(map[string]string{"MCP_PORT": "not-a-port"}))
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestLoadFromEnv_LoopbackNormalization(t *testing.T) {
	cfg := LoadFromEnv(envMap(map[string]string{
		"SYNAPSE_OAUTH_CLIENT_ID":     "client",
		"SYNAPSE_OAUTH_CLIENT_SECRET": "secret",
		"SYNAPSE_OAUTH_REDIRECT_URI":  "http://localhost:9000/oauth/callback",
	}))

	assert.Equal(t, "http://127.0.0.1:9000/oauth/callback", cfg.OAuth.RedirectURI)
}

func TestLoadFromEnv_RedirectURIDerivedFromPublicURL(t *testing.T) {
	cfg := LoadFromEnv(envMap(map[string]string{
		"SYNAPSE_OAUTH_CLIENT_ID":     "client",
		"SYNAPSE_OAUTH_CLIENT_SECRET": "secret",
		"MCP_SERVER_URL":              "http://localhost:9000/mcp",
	}))

	// Trailing /mcp is stripped and localhost normalized before deriving.
	assert.Equal(t, "http://127.0.0.1:9000", cfg.PublicURL)
	assert.Equal(t, "http://127.0.0.1:9000/oauth/callback", cfg.OAuth.RedirectURI)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
host: 0.0.0.0
port: 9100
transport: stdio
oauth:
  clientId: file-client
  scope: openid view
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "file-client", cfg.OAuth.ClientID)
	assert.Equal(t, "openid view", cfg.OAuth.Scope)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultTokenURL, cfg.OAuth.TokenURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveMode_StaticTokenWins(t *testing.T) {
	cfg := LoadFromEnv(envMap(map[string]string{
		"SYNAPSE_PAT":                 "pat-token",
		"SYNAPSE_OAUTH_CLIENT_ID":     "client",
		"SYNAPSE_OAUTH_CLIENT_SECRET": "secret",
		"SYNAPSE_OAUTH_REDIRECT_URI":  "http://127.0.0.1:9000/oauth/callback",
	}))

	mode, err := cfg.ResolveMode()
	require.NoError(t, err)
	assert.Equal(t, AuthModeStaticToken, mode)
}

func TestResolveMode_Delegated(t *testing.T) {
	cfg := LoadFromEnv(envMap(map[string]string{
		"SYNAPSE_OAUTH_CLIENT_ID":     "client",
		"SYNAPSE_OAUTH_CLIENT_SECRET": "secret",
		"SYNAPSE_OAUTH_REDIRECT_URI":  "http://127.0.0.1:9000/oauth/callback",
	}))

	mode, err := cfg.ResolveMode()
	require.NoError(t, err)
	assert.Equal(t, AuthModeDelegated, mode)
}

func TestResolveMode_MissingDelegatedParams(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "nothing configured",
			env:  nil,
		},
		{
			name: "missing client secret",
			env: map[string]string{
				"SYNAPSE_OAUTH_CLIENT_ID":    "client",
				"SYNAPSE_OAUTH_REDIRECT_URI": "http://127.0.0.1:9000/oauth/callback",
			},
		},
		{
			name: "missing client id",
			env: map[string]string{
				"SYNAPSE_OAUTH_CLIENT_SECRET": "secret",
				"SYNAPSE_OAUTH_REDIRECT_URI":  "http://127.0.0.1:9000/oauth/callback",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := LoadFromEnv(envMap(test.env))
			_, err := cfg.ResolveMode()
			require.Error(t, err)

			var confErr *ConfigurationError
			assert.ErrorAs(t, err, &confErr)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := LoadFromEnv(envMap(nil))
	assert.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Port = 9000
	cfg.Transport = "sse"
	assert.Error(t, cfg.Validate())
}
