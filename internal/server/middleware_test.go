package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse-mcp/internal/config"
	"synapse-mcp/internal/oauth"
	"synapse-mcp/internal/synapse"
)

func callToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return textContent.Text
}

func delegatedTestServer(t *testing.T) (*Server, *oauth.MemoryCredentialStore, *oauth.StateStore) {
	t.Helper()

	store := oauth.NewMemoryCredentialStore()
	t.Cleanup(func() { _ = store.Close() })
	states := oauth.NewStateStore()
	t.Cleanup(states.Stop)

	client := oauth.NewClient(config.OAuthConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURI:  "http://127.0.0.1:9000/oauth/callback",
		AuthURL:      "https://signin.example.org",
		TokenURL:     "https://idp.example.org/token",
		Scope:        "openid view",
	})

	cfg := &config.Config{Transport: config.TransportStreamableHTTP}
	srv := New(cfg,
		oauth.NewDelegatedProvider(store, client),
		oauth.NewFlow(client, states, store),
		synapse.NewClient("http://127.0.0.1:1"),
		"test")
	return srv, store, states
}

func TestAuthMiddleware_StaticTokenPassesThrough(t *testing.T) {
	cfg := &config.Config{Transport: config.TransportStreamableHTTP}
	srv := New(cfg, oauth.NewStaticProvider("pat-token"), nil, synapse.NewClient("http://127.0.0.1:1"), "test")

	var seenToken string
	handler := srv.authMiddleware(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, ok := synapse.TokenFromContext(ctx)
		require.True(t, ok)
		seenToken = token
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := handler(context.Background(), callToolRequest("get_entity", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "pat-token", seenToken)
}

func TestAuthMiddleware_NoCredentialReturnsChallenge(t *testing.T) {
	srv, store, states := delegatedTestServer(t)

	handlerCalled := false
	handler := srv.authMiddleware(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		handlerCalled = true
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := handler(context.Background(), callToolRequest("get_entity", nil))
	require.NoError(t, err)
	assert.False(t, handlerCalled)
	// A challenge is a normal result, not a protocol or tool error.
	assert.False(t, result.IsError)

	var challenge oauth.AuthChallenge
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &challenge))
	assert.Equal(t, "auth_required", challenge.Status)
	assert.Contains(t, challenge.AuthURL, "client_id=test-client")
	assert.Contains(t, challenge.AuthURL, "state=")

	// The challenge records a pending flow but never mutates credentials.
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, 1, states.Count())
}

func TestAuthMiddleware_ExpiredCredentialReturnsChallenge(t *testing.T) {
	srv, store, _ := delegatedTestServer(t)

	// Expired and not refreshable: the middleware must challenge, and the
	// dead credential is removed.
	require.NoError(t, store.Put(context.Background(), &oauth.Credential{
		SessionID:   "session-1",
		AccessToken: "stale",
		IssuedAt:    time.Now().Add(-2 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}))

	handler := srv.authMiddleware(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t.Fatal("handler must not run without a valid credential")
		return nil, nil
	})

	ctx := context.WithValue(context.Background(), sessionHeaderContextKey{}, "session-1")
	result, err := handler(ctx, callToolRequest("get_entity", nil))
	require.NoError(t, err)

	var challenge oauth.AuthChallenge
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &challenge))
	assert.Equal(t, "auth_required", challenge.Status)
	assert.Contains(t, challenge.Message, "expired")
	assert.Equal(t, 0, store.Count())
}

func TestAuthMiddleware_ValidCredentialPassesThrough(t *testing.T) {
	srv, store, _ := delegatedTestServer(t)

	require.NoError(t, store.Put(context.Background(), &oauth.Credential{
		SessionID:   "session-1",
		AccessToken: "live-token",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	handler := srv.authMiddleware(func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, ok := synapse.TokenFromContext(ctx)
		require.True(t, ok)
		return mcp.NewToolResultText(token), nil
	})

	ctx := context.WithValue(context.Background(), sessionHeaderContextKey{}, "session-1")
	result, err := handler(ctx, callToolRequest("get_entity", nil))
	require.NoError(t, err)
	assert.Equal(t, "live-token", resultText(t, result))
}

func TestSessionFromContext_HeaderFallback(t *testing.T) {
	assert.Equal(t, "", sessionFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), sessionHeaderContextKey{}, "pinned-session")
	assert.Equal(t, "pinned-session", sessionFromContext(ctx))
}
