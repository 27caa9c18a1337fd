package service

import (
	"context"
	"fmt"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/pkg/keydigest"
)

// KeySource yields the token's key material.
type KeySource interface {
	ReadData(ctx context.Context, size int) ([]byte, error)
}

// AuthGate compares the digest of a token's key material to the
// configured expected digest. It keeps no state between calls.
type AuthGate struct {
	expected string
}

// NewAuthGate creates a gate for the given hex digest.
func NewAuthGate(expectedHash string) (*AuthGate, error) {
	expected, err := keydigest.Parse(expectedHash)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("expected key hash").WithCause(err)
	}
	return &AuthGate{expected: expected}, nil
}

// VerifyKey reads up to keydigest.MaxKeyBytes from src and reports whether
// their digest matches. Read errors are returned as-is.
func (g *AuthGate) VerifyKey(ctx context.Context, src KeySource) (bool, error) {
	data, err := src.ReadData(ctx, keydigest.MaxKeyBytes)
	if err != nil {
		return false, fmt.Errorf("read key material: %w", err)
	}
	return keydigest.Verify(keydigest.Truncate(data), g.expected), nil
}

// AuthenticateKey succeeds only if VerifyKey reports a match. Every other
// outcome, including read errors, is domain.ErrAuthenticationFailed with
// no details.
func (g *AuthGate) AuthenticateKey(ctx context.Context, src KeySource) error {
	ok, err := g.VerifyKey(ctx, src)
	if err != nil || !ok {
		return domain.ErrAuthenticationFailed
	}
	return nil
}
