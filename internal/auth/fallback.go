package auth

import (
	"context"
	"sync"
	"time"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// FallbackTokenManager serves a pre-issued token until a refresh is
// demanded, then switches permanently to the fallback manager. The HTTP
// layer triggers the switch when the primary token is rejected with 401.
type FallbackTokenManager struct {
	primary  TokenManager
	fallback TokenManager
	mutex    sync.RWMutex
	switched bool
}

// NewFallbackTokenManager chains a primary manager with a fallback used
// once the primary's token stops working.
func NewFallbackTokenManager(primary, fallback TokenManager) *FallbackTokenManager {
	return &FallbackTokenManager{
		primary:  primary,
		fallback: fallback,
	}
}

// GetToken returns the active manager's token.
func (m *FallbackTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.active().GetToken(ctx)
}

// RefreshToken switches to the fallback manager and refreshes it.
func (m *FallbackTokenManager) RefreshToken(ctx context.Context) error {
	if m.fallback == nil {
		return dataverse.ErrStaticTokenCannotRefresh
	}

	m.mutex.Lock()
	m.switched = true
	m.mutex.Unlock()

	return m.fallback.RefreshToken(ctx)
}

// SetToken installs a token on the active manager.
func (m *FallbackTokenManager) SetToken(token string, expiresAt time.Time) {
	m.active().SetToken(token, expiresAt)
}

func (m *FallbackTokenManager) active() TokenManager {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.switched {
		return m.fallback
	}

	return m.primary
}
