package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port              int    `env:"PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	RedisURL          string `env:"REDIS_URL,required"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	PairingTTLSeconds int    `env:"PAIRING_TTL_SECONDS" envDefault:"600"`
	LabelSizePixels   int    `env:"LABEL_SIZE_PIXELS" envDefault:"256"`
}

// PairingTTL is how long a half-completed pairing session survives
// before an abandoned scan is discarded.
func (c *Config) PairingTTL() time.Duration {
	return time.Duration(c.PairingTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.PairingTTLSeconds <= 0 {
		return fmt.Errorf("PAIRING_TTL_SECONDS must be positive, got %d", c.PairingTTLSeconds)
	}
	if c.PairingTTLSeconds > MaxPairingTTLSeconds {
		return fmt.Errorf("PAIRING_TTL_SECONDS must be at most %d, got %d", MaxPairingTTLSeconds, c.PairingTTLSeconds)
	}
	if c.LabelSizePixels < MinLabelSizePixels || c.LabelSizePixels > MaxLabelSizePixels {
		return fmt.Errorf("LABEL_SIZE_PIXELS must be between %d and %d, got %d",
			MinLabelSizePixels, MaxLabelSizePixels, c.LabelSizePixels)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
