// Package logging provides structured logging for synapse-mcp built on the
// standard slog package.
//
// Every log entry carries a subsystem identifier ("Auth", "OAuth", "Synapse",
// "Server", ...) so that operators can filter by component:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Server", "Listening on %s", addr)
//	logging.Debug("OAuth", "Stored credential for session=%s", logging.TruncateSessionID(id))
//	logging.Error("Synapse", err, "Entity fetch failed")
//
// Session identifiers must always pass through TruncateSessionID before
// logging; access tokens and refresh tokens are never logged at all.
package logging
