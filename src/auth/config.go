package auth

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// APIKey is the shared secret mutating and admin endpoints require in
	// an X-API-Key header, per spec §6. The default is a local-only
	// placeholder; every real deployment must override it.
	APIKey string `envconfig:"API_KEY" default:"dev-only-api-key"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
