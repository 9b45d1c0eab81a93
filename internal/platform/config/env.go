package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads service configuration from environment variables into the
// tagged fields of target. Both service commands use the RACING_ANALYTICS_
// prefix for their variables; flag overrides are layered on afterwards.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
