package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"campus/config"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

const argon2IDPrefix = "$argon2id$"

// argon2Params are the cost parameters encoded in every PHC string.
type argon2Params struct {
	time       uint32
	memoryKiB  uint32
	threads    uint8
	keyLength  uint32
	saltLength uint32
}

// argon2Hasher is the current hash family. Hashes are PHC strings:
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>
type argon2Hasher struct {
	params argon2Params
}

// NewArgon2Hasher is the constructor for argon2Hasher.
func NewArgon2Hasher(cfg config.Argon2Config) service.PasswordHasher {
	return &argon2Hasher{
		params: argon2Params{
			time:       cfg.Time,
			memoryKiB:  cfg.MemoryKiB,
			threads:    cfg.Threads,
			keyLength:  cfg.KeyLength,
			saltLength: cfg.SaltLength,
		},
	}
}

// Hash derives an argon2id key with a fresh random salt.
func (h *argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "failed to read salt")
	}

	key := argon2.IDKey([]byte(password), salt, h.params.time, h.params.memoryKiB, h.params.threads, h.params.keyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2IDPrefix,
		argon2.Version,
		h.params.memoryKiB,
		h.params.time,
		h.params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key with the parameters stored in the hash, not the configured ones,
// so hashes written under older settings keep verifying.
func (h *argon2Hasher) Verify(stored, plain string) bool {
	params, salt, key, err := decodeArgon2Hash(stored)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(plain), salt, params.time, params.memoryKiB, params.threads, params.keyLength)

	return subtle.ConstantTimeCompare(key, candidate) == 1
}

func decodeArgon2Hash(stored string) (argon2Params, []byte, []byte, error) {
	var params argon2Params

	if !strings.HasPrefix(stored, argon2IDPrefix) {
		return params, nil, nil, errors.New("not an argon2id hash")
	}

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return params, nil, nil, errors.New("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, errors.Wrap(err, "malformed argon2id version")
	}
	if version != argon2.Version {
		return params, nil, nil, errors.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memoryKiB, &params.time, &params.threads); err != nil {
		return params, nil, nil, errors.Wrap(err, "malformed argon2id parameters")
	}
	if params.time == 0 || params.threads == 0 {
		return params, nil, nil, errors.New("invalid argon2id parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, errors.Wrap(err, "malformed argon2id salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, errors.New("malformed argon2id key")
	}
	params.saltLength = uint32(len(salt))
	params.keyLength = uint32(len(key))

	return params, salt, key, nil
}
