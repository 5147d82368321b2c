package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"synapse-mcp/pkg/logging"
)

// Defaults for a local development deployment. The authorization and token
// endpoints are the production Synapse identity provider.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportStdio          = "stdio"

	DefaultHost           = "127.0.0.1"
	DefaultPort           = 9000
	DefaultTransport      = TransportStreamableHTTP
	DefaultPublicURL      = "http://127.0.0.1:9000"
	DefaultSynapseBaseURL = "https://repo-prod.prod.sagebase.org"
	DefaultAuthURL        = "https://signin.synapse.org"
	DefaultTokenURL       = "https://repo-prod.prod.sagebase.org/auth/v1/oauth2/token"
	DefaultScope          = "openid view download modify"
	DefaultRedisKeyPrefix = "synapse-mcp:session:"

	// RedirectSuffix is appended to PublicURL when no explicit redirect
	// URI is configured.
	RedirectSuffix = "/oauth/callback"
)

// Load builds the configuration from defaults, an optional YAML file, and
// the process environment. Environment variables win over file values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg, os.Getenv)
	normalize(cfg)

	return cfg, nil
}

// LoadFromEnv builds the configuration from defaults and the given
// environment lookup only. Used by tests to avoid touching the process
// environment.
func LoadFromEnv(getenv func(string) string) *Config {
	cfg := defaultConfig()
	applyEnv(cfg, getenv)
	normalize(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		Transport:      DefaultTransport,
		PublicURL:      DefaultPublicURL,
		SynapseBaseURL: DefaultSynapseBaseURL,
		OAuth: OAuthConfig{
			AuthURL:  DefaultAuthURL,
			TokenURL: DefaultTokenURL,
			Scope:    DefaultScope,
		},
		Redis: RedisConfig{
			KeyPrefix: DefaultRedisKeyPrefix,
		},
	}
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("SYNAPSE_PAT"); v != "" {
		cfg.PersonalAccessToken = v
	}
	if v := getenv("SYNAPSE_OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = v
	}
	if v := getenv("SYNAPSE_OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuth.ClientSecret = v
	}
	if v := getenv("SYNAPSE_OAUTH_REDIRECT_URI"); v != "" {
		cfg.OAuth.RedirectURI = v
	}
	if v := getenv("MCP_SERVER_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := getenv("SYNAPSE_BASE_URL"); v != "" {
		cfg.SynapseBaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := getenv("MCP_HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		} else {
			logging.Warn("Config", "Ignoring non-numeric MCP_PORT value %q", v)
		}
	}
}

// normalize sanitizes derived fields. Loopback hosts are rewritten from
// localhost to 127.0.0.1 because the Synapse identity provider only accepts
// numeric loopback redirect URIs, and a trailing /mcp on the public URL is
// stripped since clients often paste the full endpoint.
func normalize(cfg *Config) {
	cfg.PublicURL = normalizeLoopback(strings.TrimRight(cfg.PublicURL, "/"))
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/mcp")

	if cfg.OAuth.RedirectURI != "" {
		cfg.OAuth.RedirectURI = normalizeLoopback(cfg.OAuth.RedirectURI)
	} else if cfg.HasDelegatedConfig() {
		cfg.OAuth.RedirectURI = cfg.PublicURL + RedirectSuffix
		logging.Info("Config", "Auto-generated redirect URI: %s", cfg.OAuth.RedirectURI)
	}
}

func normalizeLoopback(url string) string {
	if strings.Contains(url, "localhost") {
		normalized := strings.Replace(url, "localhost", "127.0.0.1", 1)
		logging.Info("Config", "Normalized loopback host from localhost to 127.0.0.1: %s", normalized)
		return normalized
	}
	return url
}
