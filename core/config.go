package core

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	Identity     string `koanf:"identity" mapstructure:"identity"`
	ServerURL    string `koanf:"server_url" mapstructure:"server_url"`
	RefreshToken string `koanf:"refresh_token" mapstructure:"refresh_token"`
	IsAdmin      bool   `koanf:"is_admin" mapstructure:"is_admin"`
}

func DefaultConfig() Config {
	return Config{}
}

// Validate checks the shape of whatever values are set. Presence of identity
// and refresh token is enforced at construction, after the layers are
// merged, so that an empty defaults layer still loads.
func (c Config) Validate() error {
	if raw := strings.TrimSpace(c.ServerURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("core: server_url is invalid: %w", err)
		}
		if parsed.Scheme == "" {
			return fmt.Errorf("core: server_url requires a scheme")
		}
	}
	return nil
}
