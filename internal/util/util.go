package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// RandomHex returns n random bytes from crypto/rand, hex encoded (2n characters).
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return hex.EncodeToString(buf), nil
}

// NormalizeEmail trims and lowercases an email address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitName splits a display name on whitespace into first name and the remaining last name.
func SplitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// MaskEmail keeps the first character of the local part for log output, e.g. "a***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}

	return email[:1] + "***" + email[at:]
}
