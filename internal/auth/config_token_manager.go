package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

var ErrNoConfigPersister = errors.New("no config persister configured")

// ConfigPersister saves refreshed tokens back to the CLI configuration
// so later invocations reuse them.
type ConfigPersister interface {
	UpdateEnvironmentToken(environmentURL, token string, expiresAt time.Time) error
}

// ConfigTokenManager wraps a credential-backed manager and persists every
// newly issued token to the CLI config.
type ConfigTokenManager struct {
	inner          *ClientCredentialsTokenManager
	persister      ConfigPersister
	environmentURL string
	mutex          sync.Mutex
	lastToken      string
}

// NewConfigTokenManager creates a config-persisting token manager. An
// initial token from a previous session, when present and unexpired, is
// served until it needs refreshing.
func NewConfigTokenManager(inner *ClientCredentialsTokenManager, persister ConfigPersister, environmentURL, initialToken string, initialExpiry time.Time) *ConfigTokenManager {
	if initialToken != "" {
		inner.SetToken(initialToken, initialExpiry)
	}

	return &ConfigTokenManager{
		inner:          inner,
		persister:      persister,
		environmentURL: environmentURL,
		lastToken:      initialToken,
	}
}

// GetToken returns a valid access token, persisting it when the inner
// manager issued a fresh one.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	token, err := m.inner.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged(token)

	return token, nil
}

// RefreshToken forces a refresh and persists the result.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	err := m.inner.RefreshToken(ctx)
	if err != nil {
		return err
	}

	token, err := m.inner.GetToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged(token)

	return nil
}

// SetToken manually installs an access token.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.inner.SetToken(token, expiresAt)
	m.lastToken = token
}

func (m *ConfigTokenManager) persistIfChanged(token string) {
	if token == m.lastToken {
		return
	}

	m.lastToken = token

	stored := m.inner.store.Get()

	var expiresAt time.Time
	if stored != nil {
		expiresAt = stored.ExpiresAt
	}

	err := m.persistToken(token, expiresAt)
	if err != nil {
		// Persisting is best effort; the request still has its token.
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to persist refreshed token: %v\n", err)
	}
}

func (m *ConfigTokenManager) persistToken(token string, expiresAt time.Time) error {
	if m.persister == nil {
		return ErrNoConfigPersister
	}

	err := m.persister.UpdateEnvironmentToken(m.environmentURL, token, expiresAt)
	if err != nil {
		return fmt.Errorf("updating environment token: %w", err)
	}

	return nil
}
