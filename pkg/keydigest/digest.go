package keydigest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxKeyBytes is the number of leading token bytes that are hashed.
const MaxKeyBytes = 1024

// HexLength is the length of a hex-encoded digest.
const HexLength = sha256.Size * 2

// ErrMalformed is returned by Parse for strings that are not a hex digest.
var ErrMalformed = errors.New("keydigest: malformed digest")

// Truncate returns the prefix of data that is hashed.
func Truncate(data []byte) []byte {
	if len(data) > MaxKeyBytes {
		return data[:MaxKeyBytes]
	}
	return data
}

// Sum computes the hex-encoded SHA-256 of exactly the given bytes.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumReader hashes the first MaxKeyBytes of r.
func SumReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxKeyBytes))
	if err != nil {
		return "", fmt.Errorf("read key material: %w", err)
	}
	return Sum(data), nil
}

// Equal compares two hex digests in constant time.
func Equal(actual, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

// Verify reports whether data hashes to expected.
func Verify(data []byte, expected string) bool {
	return Equal(Sum(data), expected)
}

// Parse validates a configured digest and returns its canonical
// lowercase form.
func Parse(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != HexLength {
		return "", fmt.Errorf("%w: length %d, want %d", ErrMalformed, len(s), HexLength)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}
