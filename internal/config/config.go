package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration structure
type Config struct {
	// Environment specifies whether the service runs in 'dev' or 'prod' mode (RC_ENVIRONMENT)
	Environment string `default:"dev"`

	// ListenAddress specifies the address the console API listens on (RC_LISTEN_ADDRESS)
	ListenAddress string `default:":8080" split_words:"true"`

	// AllowedOrigin specifies the origin the console front end is served from (RC_ALLOWED_ORIGIN)
	AllowedOrigin string `default:"*" split_words:"true"`

	// ProxyURL specifies the forwarding proxy used for RevealX 360 deployments
	// that cannot be reached directly (RC_PROXY_URL)
	ProxyURL string `split_words:"true"`

	// SessionLifetime specifies how long a console session stays valid (RC_SESSION_LIFETIME)
	SessionLifetime time.Duration `default:"8h" split_words:"true"`

	// SessionStorageDriver selects the session storage backend; 'inmem' or 'postgres' (RC_SESSION_STORAGE_DRIVER)
	SessionStorageDriver string `default:"inmem" split_words:"true"`

	// PostgresDSN specifies the PostgreSQL DSN the 'postgres' session storage driver connects to (RC_POSTGRES_DSN)
	PostgresDSN string `split_words:"true"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("rc", config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the service runs in production mode
func (config *Config) IsEnvProduction() bool {
	return config.Environment == "prod"
}
