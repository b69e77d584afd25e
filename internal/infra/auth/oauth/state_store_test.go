package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/domain/entity"
)

func TestStateStore_SingleUse(t *testing.T) {
	store := newStateStore(time.Minute, time.Now)

	state, verifier, err := store.Issue(entity.ProviderGoogle)
	require.NoError(t, err)
	assert.Len(t, state, 2*stateBytes)
	assert.NotEmpty(t, verifier)

	got, ok := store.Consume(entity.ProviderGoogle, state)
	assert.True(t, ok)
	assert.Equal(t, verifier, got)

	_, ok = store.Consume(entity.ProviderGoogle, state)
	assert.False(t, ok, "state must not be reusable")
}

func TestStateStore_RejectsWrongProviderAndUnknownState(t *testing.T) {
	store := newStateStore(time.Minute, time.Now)

	state, _, err := store.Issue(entity.ProviderGoogle)
	require.NoError(t, err)

	_, ok := store.Consume(entity.ProviderGitHub, state)
	assert.False(t, ok)

	_, ok = store.Consume(entity.ProviderGoogle, state)
	assert.False(t, ok, "a mismatched attempt burns the state")

	_, ok = store.Consume(entity.ProviderGoogle, "")
	assert.False(t, ok)
	_, ok = store.Consume(entity.ProviderGoogle, "unknown")
	assert.False(t, ok)
}

func TestStateStore_Expiry(t *testing.T) {
	now := time.Now()
	store := newStateStore(10*time.Minute, func() time.Time { return now })

	expired, _, err := store.Issue(entity.ProviderGoogle)
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	_, ok := store.Consume(entity.ProviderGoogle, expired)
	assert.False(t, ok)

	stale, _, err := store.Issue(entity.ProviderGoogle)
	require.NoError(t, err)
	now = now.Add(11 * time.Minute)
	_, _, err = store.Issue(entity.ProviderGoogle)
	require.NoError(t, err)

	store.mu.Lock()
	_, stillThere := store.states[stale]
	store.mu.Unlock()
	assert.False(t, stillThere, "expired states are cleaned up on issue")
}
