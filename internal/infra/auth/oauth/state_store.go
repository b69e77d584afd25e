package oauth

import (
	"sync"
	"time"

	"golang.org/x/oauth2"

	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/util"
)

const (
	defaultStateTTL = 10 * time.Minute
	stateBytes      = 32
)

type stateEntry struct {
	provider  entity.ProviderType
	verifier  string
	expiresAt time.Time
}

// stateStore keeps issued OAuth states in memory for CSRF protection. States are single use.
type stateStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	states map[string]stateEntry
}

// NewStateStore creates an in-memory state store with a 10 minute expiry.
func NewStateStore() service.OAuthStateStore {
	return newStateStore(defaultStateTTL, time.Now)
}

func newStateStore(ttl time.Duration, now func() time.Time) *stateStore {
	return &stateStore{
		ttl:    ttl,
		now:    now,
		states: make(map[string]stateEntry),
	}
}

// Issue generates a cryptographically secure random state and a PKCE verifier.
func (s *stateStore) Issue(provider entity.ProviderType) (string, string, error) {
	state, err := util.RandomHex(stateBytes)
	if err != nil {
		return "", "", err
	}
	verifier := oauth2.GenerateVerifier()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()
	s.states[state] = stateEntry{
		provider:  provider,
		verifier:  verifier,
		expiresAt: s.now().Add(s.ttl),
	}

	return state, verifier, nil
}

// Consume removes the state and returns its verifier when it is still valid for provider.
func (s *stateStore) Consume(provider entity.ProviderType, state string) (string, bool) {
	if state == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.states[state]
	if !exists {
		return "", false
	}

	// Remove used state to prevent replay attacks
	delete(s.states, state)

	if entry.provider != provider || s.now().After(entry.expiresAt) {
		return "", false
	}

	return entry.verifier, true
}

func (s *stateStore) cleanupExpiredLocked() {
	now := s.now()
	for state, entry := range s.states {
		if now.After(entry.expiresAt) {
			delete(s.states, state)
		}
	}
}
