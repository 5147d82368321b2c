package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCredentialStore_PutGet(t *testing.T) {
	s := NewMemoryCredentialStore()
	defer s.Close()
	ctx := context.Background()

	cred := &Credential{
		SessionID:   "session-1",
		AccessToken: "token-1",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Put(ctx, cred))

	got, err := s.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", got.AccessToken)
}

func TestMemoryCredentialStore_GetAbsent(t *testing.T) {
	s := NewMemoryCredentialStore()
	defer s.Close()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestMemoryCredentialStore_Delete(t *testing.T) {
	s := NewMemoryCredentialStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &Credential{SessionID: "session-1", AccessToken: "t", IssuedAt: time.Now()}))
	require.NoError(t, s.Delete(ctx, "session-1"))

	_, err := s.Get(ctx, "session-1")
	assert.ErrorIs(t, err, ErrNoCredential)

	// Deleting again is not an error.
	assert.NoError(t, s.Delete(ctx, "session-1"))
}

func TestMemoryCredentialStore_LastWriteWins(t *testing.T) {
	s := NewMemoryCredentialStore()
	defer s.Close()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Put(ctx, &Credential{SessionID: "s", AccessToken: "new", IssuedAt: now}))

	// A write carrying an older IssuedAt is stale and must be dropped.
	require.NoError(t, s.Put(ctx, &Credential{SessionID: "s", AccessToken: "old", IssuedAt: now.Add(-time.Minute)}))

	got, err := s.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)

	// A newer write replaces the record.
	require.NoError(t, s.Put(ctx, &Credential{SessionID: "s", AccessToken: "newer", IssuedAt: now.Add(time.Minute)}))
	got, err = s.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.AccessToken)
}

func TestMemoryCredentialStore_DeleteWinsOverStaleRefresh(t *testing.T) {
	s := NewMemoryCredentialStore()
	defer s.Close()
	ctx := context.Background()

	issued := time.Now().Add(-time.Minute)
	require.NoError(t, s.Put(ctx, &Credential{SessionID: "s", AccessToken: "t", IssuedAt: issued}))
	require.NoError(t, s.Delete(ctx, "s"))

	// A refresh that started before the delete must not resurrect the session.
	require.NoError(t, s.Put(ctx, &Credential{SessionID: "s", AccessToken: "stale", IssuedAt: issued}))
	_, err := s.Get(ctx, "s")
	assert.ErrorIs(t, err, ErrNoCredential)

	// A genuinely new authorization after the delete is accepted.
	require.NoError(t, s.Put(ctx, &Credential{SessionID: "s", AccessToken: "fresh", IssuedAt: time.Now().Add(time.Second)}))
	got, err := s.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
}

func TestMemoryCredentialStore_Sweep(t *testing.T) {
	s := NewMemoryCredentialStore()
	defer s.Close()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, s.Put(ctx, &Credential{
		SessionID: "expired-no-refresh", AccessToken: "a", IssuedAt: past, ExpiresAt: past,
	}))
	require.NoError(t, s.Put(ctx, &Credential{
		SessionID: "expired-with-refresh", AccessToken: "b", RefreshToken: "r", IssuedAt: past, ExpiresAt: past,
	}))
	require.NoError(t, s.Put(ctx, &Credential{
		SessionID: "valid", AccessToken: "c", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.Put(ctx, &Credential{
		SessionID: "static", AccessToken: "d", IssuedAt: time.Now(),
	}))

	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Only the irrecoverable record is gone.
	_, err = s.Get(ctx, "expired-no-refresh")
	assert.ErrorIs(t, err, ErrNoCredential)

	for _, id := range []string{"expired-with-refresh", "valid", "static"} {
		_, err := s.Get(ctx, id)
		assert.NoError(t, err, "session %s should survive sweep", id)
	}
}

func TestCredential_Expired(t *testing.T) {
	// Zero expiry never expires.
	static := &Credential{AccessToken: "t"}
	assert.False(t, static.Expired(0))
	assert.False(t, static.Expired(time.Hour))

	soon := &Credential{AccessToken: "t", ExpiresAt: time.Now().Add(10 * time.Second)}
	assert.False(t, soon.Expired(0))
	// Within the 30s margin the credential counts as expired.
	assert.True(t, soon.Expired(30*time.Second))

	past := &Credential{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Second)}
	assert.True(t, past.Expired(0))
}
