package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	MongoURI       string        `env:"MONGO_URI,required"`
	DBName         string        `env:"DB_NAME" envDefault:"atelier"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:""`
	JWTSecret      string        `env:"JWT_SECRET,required"`
	ServerAddr     string        `env:"SERVER_ADDR" envDefault:":8080"`
	MetricsAddr    string        `env:"METRICS_ADDR" envDefault:":9091"`
	ConfigCacheTTL time.Duration `env:"CONFIG_CACHE_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
