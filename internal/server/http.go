package server

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"synapse-mcp/internal/oauth"
)

// sessionHeaderContextKey carries the X-Synapse-Session header value for
// clients that pin their session outside the MCP protocol.
type sessionHeaderContextKey struct{}

// createMux routes the MCP endpoint alongside the health check and, in
// delegated mode, the OAuth callback.
func (s *Server) createMux() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for probes (unauthenticated).
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if s.flow != nil {
		mux.Handle("/oauth/callback", oauth.NewHandler(s.flow))
	}

	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if header := r.Header.Get("X-Synapse-Session"); header != "" {
				ctx = context.WithValue(ctx, sessionHeaderContextKey{}, header)
			}
			return ctx
		}),
	)
	mux.Handle("/mcp", streamableServer)

	return mux
}

// sessionFromContext resolves the caller's session identity. The MCP
// protocol session takes precedence; the X-Synapse-Session header is a
// fallback for clients that reconnect with a pinned session.
func sessionFromContext(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	if header, ok := ctx.Value(sessionHeaderContextKey{}).(string); ok {
		return header
	}
	return ""
}
