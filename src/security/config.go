package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ModelConfigKey is base64-encoded key material of any length, stretched
	// via HKDF into the AES-256 key encrypting a participant's model-provider
	// config blob at rest (src/security/security.go).
	// The default is a placeholder for local/dev use only; production
	// deployments must override it.
	ModelConfigKey string `envconfig:"MODEL_CONFIG_KEY" default:"MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
