package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	CatalogConfig
	LinkingConfig
	StorageConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Catalog
	Linking
	Storage
	Security
}

// New loads the configuration from the environment. Unset variables fall back to
// their envDefault values.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config.New] parse env: %w", err)
	}
	return c, nil
}

// GetCallbackURL defaults the OAuth callback to the service's own callback route.
func (c mainConfig) GetCallbackURL() string {
	if c.Linking.CallbackURL != "" {
		return c.Linking.CallbackURL
	}
	return c.EnvVars.GetBaseURL() + "/api/catalog/callback"
}
