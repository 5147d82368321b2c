package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"synapse-mcp/internal/oauth"
	"synapse-mcp/internal/synapse"
	"synapse-mcp/pkg/logging"
)

// authMiddleware resolves an access token for the calling session before
// any tool handler runs. On success the token is placed on the request
// context for the Synapse client. When the session has no usable
// credential the middleware starts an authorization flow and returns an
// auth challenge as the tool result, never a protocol error, so that
// clients can surface the authorization URL to the user.
func (s *Server) authMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := sessionFromContext(ctx)

		token, err := s.provider.AccessToken(ctx, sessionID)
		if err == nil {
			return next(synapse.ContextWithToken(ctx, token), request)
		}

		if errors.Is(err, oauth.ErrNoCredential) || errors.Is(err, oauth.ErrCredentialExpired) {
			return s.challenge(ctx, sessionID, err)
		}

		logging.Error("Auth", err, "Failed to resolve credential for session %s",
			logging.TruncateSessionID(sessionID))
		return mcp.NewToolResultError(fmt.Sprintf("authentication error: %v", err)), nil
	}
}

// challenge begins an authorization flow for the session and renders the
// resulting authorization URL as an auth_required tool result.
func (s *Server) challenge(ctx context.Context, sessionID string, cause error) (*mcp.CallToolResult, error) {
	if s.flow == nil {
		return mcp.NewToolResultError("no credential available and delegated authentication is not configured"), nil
	}

	authURL, _, err := s.flow.Begin(ctx, sessionID)
	if err != nil {
		logging.Error("Auth", err, "Failed to begin authorization flow")
		return mcp.NewToolResultError(fmt.Sprintf("failed to start authentication: %v", err)), nil
	}

	message := "Authentication required. Open the URL to sign in to Synapse."
	if errors.Is(cause, oauth.ErrCredentialExpired) {
		message = "Your Synapse session expired. Open the URL to sign in again."
	}

	logging.Debug("Auth", "Issued auth challenge for session %s", logging.TruncateSessionID(sessionID))

	payload, err := json.Marshal(oauth.NewAuthChallenge(authURL, message))
	if err != nil {
		return mcp.NewToolResultError("failed to encode auth challenge"), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
