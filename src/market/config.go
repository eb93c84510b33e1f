package market

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config configures the Binance market-data adapter and its price cache,
// following the teacher's cmd/ohlcvcrypto/config.go envconfig idiom.
type Config struct {
	Quote          string        `envconfig:"MARKET_QUOTE" default:"USDT"`
	CacheTTL       time.Duration `envconfig:"MARKET_CACHE_TTL" default:"60s"`
	StreamEnabled  bool          `envconfig:"MARKET_STREAM_ENABLED" default:"true"`
	RequestTimeout time.Duration `envconfig:"MARKET_REQUEST_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
