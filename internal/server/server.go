package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/mark3labs/mcp-go/server"

	"synapse-mcp/internal/config"
	"synapse-mcp/internal/oauth"
	"synapse-mcp/internal/synapse"
	"synapse-mcp/pkg/logging"
)

// Server hosts the MCP server and its transport. In delegated mode it
// also serves the OAuth callback endpoint on the same listener.
type Server struct {
	cfg      *config.Config
	provider *oauth.Provider
	flow     *oauth.Flow // nil in static token mode
	synapse  *synapse.Client

	mu         sync.Mutex
	mcpServer  *server.MCPServer
	httpServer *http.Server
	stdioDone  context.CancelFunc
}

// New wires the MCP server with its tools, resources, and the
// authentication middleware. flow may be nil when running in static
// token mode.
func New(cfg *config.Config, provider *oauth.Provider, flow *oauth.Flow, client *synapse.Client, version string) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
		flow:     flow,
		synapse:  client,
	}

	s.mcpServer = server.NewMCPServer(
		"synapse-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithToolHandlerMiddleware(s.authMiddleware),
	)

	s.registerTools()
	s.registerResources()

	return s
}

// MCPServer exposes the underlying MCP server, primarily for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Start launches the configured transport. For streamable-http the
// listener also serves /healthz and, in delegated mode, the OAuth
// callback. Start returns once the listener is running.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil || s.stdioDone != nil {
		return fmt.Errorf("server already started")
	}

	switch s.cfg.Transport {
	case config.TransportStdio:
		logging.Info("Server", "Starting MCP server with stdio transport")
		stdioCtx, cancel := context.WithCancel(ctx)
		s.stdioDone = cancel
		stdioServer := server.NewStdioServer(s.mcpServer)
		go func() {
			if err := stdioServer.Listen(stdioCtx, os.Stdin, os.Stdout); err != nil {
				logging.Error("Server", err, "Stdio server error")
			}
		}()

	case config.TransportStreamableHTTP:
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
		logging.Info("Server", "Starting MCP server with streamable-http transport on %s", addr)
		s.httpServer = &http.Server{
			Addr:              addr,
			Handler:           s.createMux(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		httpServer := s.httpServer
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Server", err, "HTTP server error")
			}
		}()

	default:
		return fmt.Errorf("unsupported transport: %s", s.cfg.Transport)
	}

	// Tell systemd we are up. A no-op outside a systemd unit.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Server", "sd_notify failed: %v", err)
	}

	return nil
}

// Stop shuts the transport down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	stdioDone := s.stdioDone
	s.httpServer = nil
	s.stdioDone = nil
	s.mu.Unlock()

	if httpServer == nil && stdioDone == nil {
		return fmt.Errorf("server not started")
	}

	logging.Info("Server", "Stopping MCP server")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if stdioDone != nil {
		stdioDone()
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	}

	return nil
}
