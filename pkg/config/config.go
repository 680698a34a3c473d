package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AuthModeNone     = "none"
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)

// Config holds the server settings read from HEXCONQUEST_* variables.
type Config struct {
	Port     int    `env:"HEXCONQUEST_PORT" envDefault:"8080"`
	LogLevel string `env:"HEXCONQUEST_LOG_LEVEL" envDefault:"info"`

	DatabaseURL   string `env:"HEXCONQUEST_DATABASE_URL" envDefault:"memory://"`
	MongoDatabase string `env:"HEXCONQUEST_MONGO_DATABASE" envDefault:"hexconquest"`
	// RedisURL enables the shared presence tracker when set.
	RedisURL string `env:"HEXCONQUEST_REDIS_URL"`

	AuthMode            string `env:"HEXCONQUEST_AUTH_MODE" envDefault:"none"`
	JWTSecret           string `env:"HEXCONQUEST_JWT_SECRET"`
	FirebaseProjectID   string `env:"HEXCONQUEST_FIREBASE_PROJECT_ID"`
	FirebaseAPIKey      string `env:"HEXCONQUEST_FIREBASE_API_KEY"`
	FirebaseCredentials string `env:"HEXCONQUEST_FIREBASE_CREDENTIALS_FILE"`

	AllowOrigin    string        `env:"HEXCONQUEST_ALLOW_ORIGIN" envDefault:"*"`
	ActionTimeout  time.Duration `env:"HEXCONQUEST_ACTION_TIMEOUT" envDefault:"10s"`
	MaxTurnRetries int           `env:"HEXCONQUEST_MAX_TURN_RETRIES" envDefault:"3"`
	SendQueueSize  int           `env:"HEXCONQUEST_SEND_QUEUE_SIZE" envDefault:"256"`
	SweepInterval  time.Duration `env:"HEXCONQUEST_SWEEP_INTERVAL" envDefault:"1m"`

	TLSCertFile string `env:"HEXCONQUEST_TLS_CERT_FILE"`
	TLSKeyFile  string `env:"HEXCONQUEST_TLS_KEY_FILE"`

	// SeedFile is a JSON document of games and users loaded on startup.
	SeedFile string `env:"HEXCONQUEST_SEED_FILE"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeNone:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("HEXCONQUEST_JWT_SECRET is required with auth mode %s", c.AuthMode)
		}
	case AuthModeFirebase:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("HEXCONQUEST_FIREBASE_PROJECT_ID is required with auth mode %s", c.AuthMode)
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("HEXCONQUEST_TLS_CERT_FILE and HEXCONQUEST_TLS_KEY_FILE must be set together")
	}
	if c.MaxTurnRetries < 1 {
		return fmt.Errorf("HEXCONQUEST_MAX_TURN_RETRIES must be at least 1")
	}
	return nil
}
