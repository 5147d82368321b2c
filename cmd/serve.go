package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"synapse-mcp/internal/config"
	"synapse-mcp/internal/oauth"
	"synapse-mcp/internal/server"
	"synapse-mcp/internal/synapse"
	"synapse-mcp/pkg/logging"
)

var (
	serveHost       string
	servePort       int
	serveTransport  string
	serveConfigPath string
	serveDebug      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Synapse MCP server",
	Long: `Starts the MCP server with the configured transport.

Authentication mode is resolved from the environment:

1. Static token mode: SYNAPSE_PAT is set. Every session uses the
   configured personal access token. Intended for local development.

2. Delegated mode: SYNAPSE_OAUTH_CLIENT_ID and SYNAPSE_OAUTH_CLIENT_SECRET
   are set (the redirect URI is derived from MCP_SERVER_URL unless
   SYNAPSE_OAUTH_REDIRECT_URI overrides it). Each session signs in to
   Synapse through an OAuth flow; credentials are kept per session.

When REDIS_URL is set, delegated-mode credentials are stored in Redis so
sessions survive restarts; otherwise an in-memory store is used.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	// Logs go to stderr so the stdio transport keeps stdout clean.
	logging.Init(level, os.Stderr)

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = serveTransport
	}
	if serveDebug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := cfg.ResolveMode()
	if err != nil {
		return err
	}
	logging.Info("Serve", "Authentication mode: %s", mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := synapse.NewClient(cfg.SynapseBaseURL)

	var (
		provider *oauth.Provider
		flow     *oauth.Flow
	)
	switch mode {
	case config.AuthModeStaticToken:
		provider = oauth.NewStaticProvider(cfg.PersonalAccessToken)

	case config.AuthModeDelegated:
		var store oauth.CredentialStore
		if cfg.Redis.URL != "" {
			store, err = oauth.NewRedisCredentialStore(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
			if err != nil {
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}
			logging.Info("Serve", "Using Redis credential store")
		} else {
			store = oauth.NewMemoryCredentialStore()
			logging.Info("Serve", "Using in-memory credential store")
		}
		defer func() { _ = store.Close() }()

		oauthClient := oauth.NewClient(cfg.OAuth)
		states := oauth.NewStateStore()
		defer states.Stop()

		flow = oauth.NewFlow(oauthClient, states, store)
		provider = oauth.NewDelegatedProvider(store, oauthClient)
	}

	srv := server.New(cfg, provider, flow, client, GetVersion())
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop(context.Background())
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "Address to bind the HTTP listener to")
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to bind the HTTP listener to")
	serveCmd.Flags().StringVar(&serveTransport, "transport", config.DefaultTransport, "MCP transport: streamable-http or stdio")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a YAML configuration file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}
