package oauth

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"synapse-mcp/pkg/logging"
)

// Handler serves the browser-facing OAuth callback endpoint.
type Handler struct {
	flow *Flow
}

// NewHandler creates a callback handler for the given flow.
func NewHandler(flow *Flow) *Handler {
	return &Handler{flow: flow}
}

// HandleCallback handles the OAuth callback endpoint. This is called by the
// browser after the user authenticates with the identity provider.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	stateParam := query.Get("state")
	errorParam := query.Get("error")
	errorDesc := query.Get("error_description")

	if stateParam == "" {
		logging.Warn("OAuth", "Callback missing state parameter")
		h.renderErrorPage(w, "Invalid callback: missing state parameter")
		return
	}

	sessionID, err := h.flow.HandleCallback(r.Context(), stateParam, code, errorParam, errorDesc)
	if err != nil {
		var exchangeErr *TokenExchangeError
		switch {
		case errors.Is(err, ErrInvalidState):
			h.renderErrorPage(w, "Authentication session expired or already used. Please try again.")
		case errors.As(err, &exchangeErr):
			logging.Error("OAuth", err, "Failed to complete authorization")
			h.renderErrorPage(w, fmt.Sprintf("Authentication failed: %s", exchangeErr.Reason))
		default:
			logging.Error("OAuth", err, "Failed to complete authorization")
			h.renderErrorPage(w, "Failed to complete authentication. Please try again.")
		}
		return
	}

	h.renderSuccessPage(w, sessionID)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleCallback(w, r)
}

// setSecurityHeaders sets recommended security headers for HTML responses.
// These headers help prevent XSS, clickjacking, and MIME sniffing attacks.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

// renderSuccessPage renders an HTML page indicating successful authentication.
func (h *Handler) renderSuccessPage(w http.ResponseWriter, sessionID string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	// The session ID is server-generated, but escape it anyway.
	safeSessionID := html.EscapeString(logging.TruncateSessionID(sessionID))

	htmlContent := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Authentication Successful - Synapse MCP</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: linear-gradient(135deg, #10243e 0%%, #15385e 50%%, #1a4a7a 100%%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #e8e8e8;
        }
        .container {
            text-align: center;
            padding: 3rem;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            backdrop-filter: blur(10px);
            max-width: 500px;
            margin: 1rem;
        }
        .checkmark {
            width: 80px;
            height: 80px;
            margin: 0 auto 1.5rem;
            background: linear-gradient(135deg, #00d4aa 0%%, #00a896 100%%);
            border-radius: 50%%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 2.5rem;
        }
        h1 {
            font-size: 1.75rem;
            font-weight: 600;
            margin-bottom: 0.5rem;
            color: #fff;
        }
        .session {
            color: #00d4aa;
            font-weight: 500;
            font-family: monospace;
        }
        p {
            color: #a0a0a0;
            line-height: 1.6;
            margin-top: 1rem;
        }
        .footer {
            margin-top: 2rem;
            padding-top: 1.5rem;
            border-top: 1px solid rgba(255, 255, 255, 0.1);
            font-size: 0.875rem;
            color: #666;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="checkmark">✓</div>
        <h1>Authentication Successful</h1>
        <p>Your Synapse session <span class="session">%s</span> is now authenticated.</p>
        <p>You can close this window and return to your MCP client.</p>
        <p>Retry the previous request to continue.</p>
        <div class="footer">
            Powered by Synapse MCP
        </div>
    </div>
</body>
</html>`, safeSessionID)

	w.Write([]byte(htmlContent))
}

// renderErrorPage renders an HTML page indicating an authentication error.
func (h *Handler) renderErrorPage(w http.ResponseWriter, message string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)

	// Escape message to prevent XSS attacks
	safeMessage := html.EscapeString(message)

	htmlContent := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Authentication Failed - Synapse MCP</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: linear-gradient(135deg, #10243e 0%%, #15385e 50%%, #1a4a7a 100%%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #e8e8e8;
        }
        .container {
            text-align: center;
            padding: 3rem;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            backdrop-filter: blur(10px);
            max-width: 500px;
            margin: 1rem;
        }
        .error-icon {
            width: 80px;
            height: 80px;
            margin: 0 auto 1.5rem;
            background: linear-gradient(135deg, #ff6b6b 0%%, #ee5a5a 100%%);
            border-radius: 50%%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 2.5rem;
        }
        h1 {
            font-size: 1.75rem;
            font-weight: 600;
            margin-bottom: 0.5rem;
            color: #fff;
        }
        .message {
            color: #ff6b6b;
            font-weight: 500;
            margin-top: 1rem;
        }
        p {
            color: #a0a0a0;
            line-height: 1.6;
            margin-top: 1rem;
        }
        .footer {
            margin-top: 2rem;
            padding-top: 1.5rem;
            border-top: 1px solid rgba(255, 255, 255, 0.1);
            font-size: 0.875rem;
            color: #666;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="error-icon">✕</div>
        <h1>Authentication Failed</h1>
        <p class="message">%s</p>
        <p>Please return to your MCP client and try again.</p>
        <div class="footer">
            Powered by Synapse MCP
        </div>
    </div>
</body>
</html>`, safeMessage)

	w.Write([]byte(htmlContent))
}
