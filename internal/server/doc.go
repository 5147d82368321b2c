// Package server hosts the Synapse MCP server: tool and resource
// registration, per-request credential resolution, and the HTTP or
// stdio transport lifecycle.
//
// Every tool handler runs behind an authentication middleware that
// resolves an access token for the calling session before the handler
// executes. In static token mode the configured personal access token
// is used for all sessions. In delegated mode the middleware looks the
// session's credential up in the credential store; when none exists it
// starts an authorization flow and returns an auth challenge to the
// client instead of calling the tool.
package server
