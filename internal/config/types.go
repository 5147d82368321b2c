package config

// AuthMode selects how outbound Synapse requests are authenticated.
// The mode is resolved exactly once at process start and never changes
// for the lifetime of the process.
type AuthMode int

const (
	// AuthModeStaticToken uses a single operator-supplied personal access
	// token for every request. Intended for development and single-user
	// deployments.
	AuthModeStaticToken AuthMode = iota

	// AuthModeDelegated runs the server as an OAuth relying party: each
	// client session authenticates with the identity provider and the
	// server holds per-session credentials.
	AuthModeDelegated
)

// String makes AuthMode satisfy the fmt.Stringer interface.
func (m AuthMode) String() string {
	switch m {
	case AuthModeStaticToken:
		return "static-token"
	case AuthModeDelegated:
		return "delegated"
	default:
		return "unknown"
	}
}

// OAuthConfig holds the relying-party parameters for delegated mode.
type OAuthConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURI  string `yaml:"redirectUri"`
	AuthURL      string `yaml:"authUrl"`
	TokenURL     string `yaml:"tokenUrl"`
	Scope        string `yaml:"scope"`
}

// RedisConfig holds the optional Redis credential storage parameters.
// When URL is empty, credentials are kept in process memory.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Config is the complete server configuration. It is assembled once at boot
// from defaults, an optional YAML file, and environment variables (later
// sources win) and treated as immutable afterwards.
type Config struct {
	// Host and Port define the HTTP listen address.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Transport selects the MCP transport: "streamable-http" or "stdio".
	Transport string `yaml:"transport"`

	// PublicURL is the externally reachable base URL of this server,
	// used to derive the OAuth redirect URI and challenge URLs.
	PublicURL string `yaml:"publicUrl"`

	// SynapseBaseURL is the Synapse REST API base.
	SynapseBaseURL string `yaml:"synapseBaseUrl"`

	// PersonalAccessToken is only ever read from the environment, never
	// from a config file on disk.
	PersonalAccessToken string `yaml:"-"`

	OAuth OAuthConfig `yaml:"oauth"`
	Redis RedisConfig `yaml:"redis"`

	Debug bool `yaml:"debug"`
}

// HasStaticToken reports whether a personal access token is configured.
func (c *Config) HasStaticToken() bool {
	return c.PersonalAccessToken != ""
}

// HasDelegatedConfig reports whether any delegated-mode parameter is set.
func (c *Config) HasDelegatedConfig() bool {
	return c.OAuth.ClientID != "" || c.OAuth.ClientSecret != "" || c.OAuth.RedirectURI != ""
}
