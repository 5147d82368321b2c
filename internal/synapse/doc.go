// Package synapse is a thin client for the Synapse REST API.
//
// The client never holds credentials itself: every call reads the bearer
// token from the request context, where the request authenticator placed it.
// This keeps the client free of authentication policy; static-token and
// delegated deployments use it identically.
package synapse
