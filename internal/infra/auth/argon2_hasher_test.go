package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/config"
)

func newTestArgon2Config() config.Argon2Config {
	return config.Argon2Config{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLength: 32, SaltLength: 16}
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := NewArgon2Hasher(newTestArgon2Config())

	hash, err := hasher.Hash("password1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.True(t, hasher.Verify(hash, "password1"))
	assert.False(t, hasher.Verify(hash, "password2"))
}

func TestArgon2Hasher_SaltsDiffer(t *testing.T) {
	hasher := NewArgon2Hasher(newTestArgon2Config())

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2Hasher_VerifiesWithStoredParameters(t *testing.T) {
	old := NewArgon2Hasher(newTestArgon2Config())
	hash, err := old.Hash("password1")
	require.NoError(t, err)

	cfg := newTestArgon2Config()
	cfg.Time = 2
	cfg.MemoryKiB = 2048
	current := NewArgon2Hasher(cfg)

	assert.True(t, current.Verify(hash, "password1"))
}

func TestArgon2Hasher_MalformedHashesNeverMatch(t *testing.T) {
	hasher := NewArgon2Hasher(newTestArgon2Config())

	malformed := []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=1024,t=1,p=1$onlysalt",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdHNhbHRzYWx0$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5",
	}

	for _, stored := range malformed {
		assert.False(t, hasher.Verify(stored, "password1"), "stored=%q", stored)
	}
}
