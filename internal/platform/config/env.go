// Package config loads process configuration.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by classfactory.
const EnvPrefix = "CLASSFACTORY_"

// ParseEnv loads configuration from environment variables using the struct's
// env tags. Tags name the variable without EnvPrefix: `env:"DB_PATH"` reads
// CLASSFACTORY_DB_PATH.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
