package auth

import (
	"context"
	"time"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// StaticTokenManager serves a fixed access token. It cannot refresh;
// callers that need refresh semantics should wrap it in a
// FallbackTokenManager backed by a credential grant.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager around a pre-issued token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	store := NewTokenStore()
	store.Set(&Token{AccessToken: token, TokenType: "Bearer"})

	return &StaticTokenManager{store: store}
}

// GetToken returns the configured token.
func (m *StaticTokenManager) GetToken(_ context.Context) (string, error) {
	token := m.store.Get()
	if token == nil || token.AccessToken == "" {
		return "", dataverse.ErrNoTokenManagerConfigured
	}

	return token.AccessToken, nil
}

// RefreshToken always fails: a static token has no issuing credentials.
func (m *StaticTokenManager) RefreshToken(_ context.Context) error {
	return dataverse.ErrStaticTokenCannotRefresh
}

// SetToken replaces the stored token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}
