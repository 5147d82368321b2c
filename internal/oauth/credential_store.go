package oauth

import (
	"context"
	"sync"
	"time"

	"synapse-mcp/pkg/logging"
)

// tombstoneRetention is how long a deleted session blocks stale writes.
// A refresh that raced a logout finishes well within this window.
const tombstoneRetention = 10 * time.Minute

// CredentialStore persists per-session credential records.
//
// Implementations must apply each operation atomically per session ID.
// Concurrent writes for the same session are ordered by Credential.IssuedAt:
// a write older than the stored record, or older than a recent delete of the
// same session, is stale and silently dropped.
type CredentialStore interface {
	// Put stores a credential, replacing any existing record for the
	// session unless the write is stale.
	Put(ctx context.Context, cred *Credential) error

	// Get returns the credential for a session, or ErrNoCredential.
	// Expiry is not checked here; that is the Provider's concern.
	Get(ctx context.Context, sessionID string) (*Credential, error)

	// Delete removes the credential for a session. Deleting an absent
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Sweep removes irrecoverable records (expired with no refresh token)
	// and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	// Close releases resources and stops background maintenance.
	Close() error
}

// MemoryCredentialStore is the in-process CredentialStore. Credentials are
// lost on restart, which only forces a re-authentication.
type MemoryCredentialStore struct {
	mu         sync.RWMutex
	creds      map[string]*Credential
	tombstones map[string]time.Time

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
}

// NewMemoryCredentialStore creates an in-memory credential store and starts
// a background goroutine for periodic sweeps.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	s := &MemoryCredentialStore{
		creds:         make(map[string]*Credential),
		tombstones:    make(map[string]time.Time),
		sweepInterval: 5 * time.Minute,
		stopSweep:     make(chan struct{}),
	}

	go s.sweepLoop()

	return s
}

// Put stores a credential unless it is stale.
func (s *MemoryCredentialStore) Put(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deletedAt, ok := s.tombstones[cred.SessionID]; ok && cred.IssuedAt.Before(deletedAt) {
		logging.Debug("OAuth", "Dropping stale credential write for deleted session=%s",
			logging.TruncateSessionID(cred.SessionID))
		return nil
	}
	if existing, ok := s.creds[cred.SessionID]; ok && cred.IssuedAt.Before(existing.IssuedAt) {
		logging.Debug("OAuth", "Dropping stale credential write for session=%s",
			logging.TruncateSessionID(cred.SessionID))
		return nil
	}

	s.creds[cred.SessionID] = cred
	delete(s.tombstones, cred.SessionID)
	logging.Debug("OAuth", "Stored credential for session=%s (expires: %v)",
		logging.TruncateSessionID(cred.SessionID), cred.ExpiresAt)
	return nil
}

// Get returns the credential for a session, or ErrNoCredential.
func (s *MemoryCredentialStore) Get(_ context.Context, sessionID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.creds[sessionID]
	if !exists {
		return nil, ErrNoCredential
	}
	return cred, nil
}

// Delete removes the credential for a session and leaves a tombstone so a
// concurrent stale refresh cannot resurrect it.
func (s *MemoryCredentialStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, sessionID)
	s.tombstones[sessionID] = time.Now()
	logging.Debug("OAuth", "Deleted credential for session=%s", logging.TruncateSessionID(sessionID))
	return nil
}

// Sweep removes expired credentials that have no refresh token, plus aged
// tombstones.
func (s *MemoryCredentialStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for sessionID, cred := range s.creds {
		if cred.Expired(0) && cred.RefreshToken == "" {
			delete(s.creds, sessionID)
			count++
		}
	}
	for sessionID, deletedAt := range s.tombstones {
		if time.Since(deletedAt) > tombstoneRetention {
			delete(s.tombstones, sessionID)
		}
	}

	if count > 0 {
		logging.Debug("OAuth", "Swept %d irrecoverable credentials", count)
	}
	return count, nil
}

// Count returns the number of stored credentials.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

// Close stops the background sweep goroutine.
func (s *MemoryCredentialStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopSweep) })
	return nil
}

func (s *MemoryCredentialStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.Sweep(context.Background())
		case <-s.stopSweep:
			return
		}
	}
}
