package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/davwright/XB-DataverseTools/internal/constants"
)

// ConfigPersister implements the auth.ConfigPersister interface by saving
// refreshed tokens into the environment's config entry.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateEnvironmentToken updates the stored token and related metadata
// for the named environment.
func (p *ConfigPersister) UpdateEnvironmentToken(environment, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	envConfig, exists := config.Environments[environment]
	if !exists {
		return fmt.Errorf("environment '%s': %w", environment, constants.ErrConfigNotFound)
	}

	envConfig.Token = token
	if !expiresAt.IsZero() {
		envConfig.TokenExpiresAt = &expiresAt
	}

	now := time.Now()
	envConfig.LastRefreshed = &now

	return saveConfigStruct(config)
}
