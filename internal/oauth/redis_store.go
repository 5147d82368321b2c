package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"synapse-mcp/pkg/logging"
)

// refreshRetention is how long a refresh-capable credential outlives its
// access token expiry in Redis. The refresh token stays usable during this
// window; afterwards the session must re-authenticate anyway.
const refreshRetention = 7 * 24 * time.Hour

// RedisCredentialStore is a CredentialStore backed by Redis, for deployments
// where credentials must survive restarts or be shared across replicas.
// Records carry a native Redis TTL, so Sweep is a no-op.
type RedisCredentialStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisCredentialStore connects to Redis using a redis:// URL and
// verifies the connection with a ping.
func NewRedisCredentialStore(ctx context.Context, url, keyPrefix string) (*RedisCredentialStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("OAuth", "Using Redis credential storage at %s", opts.Addr)
	return NewRedisCredentialStoreWithClient(client, keyPrefix), nil
}

// NewRedisCredentialStoreWithClient creates a store on an existing client.
// Used by tests with miniredis.
func NewRedisCredentialStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisCredentialStore {
	return &RedisCredentialStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisCredentialStore) credKey(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisCredentialStore) tombstoneKey(sessionID string) string {
	return s.keyPrefix + "deleted:" + sessionID
}

// Put stores a credential unless it is stale. The IssuedAt comparison and
// the write happen inside a WATCH transaction so concurrent writers for the
// same session cannot interleave.
func (s *RedisCredentialStore) Put(ctx context.Context, cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	key := s.credKey(cred.SessionID)
	tombstone := s.tombstoneKey(cred.SessionID)

	txn := func(tx *redis.Tx) error {
		deletedAt, err := tx.Get(ctx, tombstone).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if t, perr := time.Parse(time.RFC3339Nano, deletedAt); perr == nil && cred.IssuedAt.Before(t) {
				logging.Debug("OAuth", "Dropping stale credential write for deleted session=%s",
					logging.TruncateSessionID(cred.SessionID))
				return nil
			}
		}

		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var existing Credential
			if jerr := json.Unmarshal(current, &existing); jerr == nil && cred.IssuedAt.Before(existing.IssuedAt) {
				logging.Debug("OAuth", "Dropping stale credential write for session=%s",
					logging.TruncateSessionID(cred.SessionID))
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, credentialTTL(cred))
			pipe.Del(ctx, tombstone)
			return nil
		})
		return err
	}

	// Retry on WATCH conflicts. The newest write wins on every retry, so
	// this terminates quickly.
	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txn, key, tombstone)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to store credential: %w", err)
		}
	}
	return fmt.Errorf("failed to store credential for session %s: too many conflicts",
		logging.TruncateSessionID(cred.SessionID))
}

// Get returns the credential for a session, or ErrNoCredential.
func (s *RedisCredentialStore) Get(ctx context.Context, sessionID string) (*Credential, error) {
	data, err := s.client.Get(ctx, s.credKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// Delete removes the credential and leaves a tombstone with a short TTL so
// a concurrent stale refresh cannot resurrect the session.
func (s *RedisCredentialStore) Delete(ctx context.Context, sessionID string) error {
	now := time.Now().Format(time.RFC3339Nano)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.credKey(sessionID))
		pipe.Set(ctx, s.tombstoneKey(sessionID), now, tombstoneRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	logging.Debug("OAuth", "Deleted credential for session=%s", logging.TruncateSessionID(sessionID))
	return nil
}

// Sweep is a no-op: records expire via their Redis TTL.
func (s *RedisCredentialStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

// Close closes the underlying Redis client.
func (s *RedisCredentialStore) Close() error {
	return s.client.Close()
}

// credentialTTL returns the Redis TTL for a credential record. Records with
// a refresh token are kept past access expiry so the refresh can happen;
// records without an expiry are kept indefinitely.
func credentialTTL(cred *Credential) time.Duration {
	if cred.ExpiresAt.IsZero() {
		return 0
	}
	ttl := time.Until(cred.ExpiresAt)
	if cred.RefreshToken != "" {
		ttl += refreshRetention
	}
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}
