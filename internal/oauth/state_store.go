package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"synapse-mcp/pkg/logging"
)

// StateStore holds pending-authorization state tokens between Begin and the
// OAuth callback. State tokens link callbacks to the flows that created them
// and provide CSRF protection: each token is single-use and short-lived.
type StateStore struct {
	mu     sync.Mutex
	states map[string]*PendingAuth

	stateExpiry time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStateStore creates a state store with the default 5 minute expiry.
func NewStateStore() *StateStore {
	ss := &StateStore{
		states:      make(map[string]*PendingAuth),
		stateExpiry: 5 * time.Minute,
		stopCleanup: make(chan struct{}),
	}

	go ss.cleanupLoop()

	return ss
}

// Generate creates a cryptographically random state token and records the
// pending authorization under it.
func (ss *StateStore) Generate(sessionID, scope string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(nonce)

	pending := &PendingAuth{
		State:     state,
		SessionID: sessionID,
		Scope:     scope,
		CreatedAt: time.Now(),
	}

	ss.mu.Lock()
	ss.states[state] = pending
	ss.mu.Unlock()

	logging.Debug("OAuth", "Generated state for session=%s", logging.TruncateSessionID(sessionID))
	return state, nil
}

// Consume looks up a state token and removes it in the same critical
// section, so a token can never be accepted twice. Returns nil for unknown,
// already-consumed, or expired tokens.
func (ss *StateStore) Consume(state string) *PendingAuth {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	pending, exists := ss.states[state]
	if !exists {
		logging.Warn("OAuth", "State token not found, possible replay or CSRF")
		return nil
	}

	delete(ss.states, state)

	if time.Since(pending.CreatedAt) > ss.stateExpiry {
		logging.Warn("OAuth", "State token expired, age=%v", time.Since(pending.CreatedAt))
		return nil
	}

	return pending
}

// Count returns the number of pending authorizations.
func (ss *StateStore) Count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.states)
}

// Stop stops the background cleanup goroutine.
func (ss *StateStore) Stop() {
	ss.stopOnce.Do(func() { close(ss.stopCleanup) })
}

// cleanupLoop periodically removes expired states from the store.
func (ss *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.cleanup()
		case <-ss.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired states from the store.
func (ss *StateStore) cleanup() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	count := 0
	for state, pending := range ss.states {
		if time.Since(pending.CreatedAt) > ss.stateExpiry {
			delete(ss.states, state)
			count++
		}
	}

	if count > 0 {
		logging.Debug("OAuth", "Cleaned up %d expired states", count)
	}
}
