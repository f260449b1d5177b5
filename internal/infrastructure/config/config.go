package config

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/service"
)

// devSecret signs tokens outside production when JWT_SECRET is unset.
const devSecret = "identity-dev-secret-do-not-use-in-production"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth     AuthConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Recorder RecorderConfig
	Cache    CacheConfig
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET"`
	Issuer             string        `env:"JWT_ISSUER,               default=identity-service"`
	AccessTTL          time.Duration `env:"JWT_ACCESS_TTL,           default=24h"`
	RefreshTTL         time.Duration `env:"JWT_REFRESH_TTL,          default=168h"`
	RememberAccessTTL  time.Duration `env:"JWT_REMEMBER_ACCESS_TTL,  default=720h"`
	RememberRefreshTTL time.Duration `env:"JWT_REMEMBER_REFRESH_TTL, default=1440h"`
	BcryptCost         int           `env:"BCRYPT_COST,              default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// RecorderConfig sizes the asynchronous last-login writer. Zero workers
// writes last-login inline on the request.
type RecorderConfig struct {
	Workers int `env:"LOGIN_RECORDER_WORKERS, default=4"`
}

type CacheConfig struct {
	CategoryTTL time.Duration `env:"CATEGORY_CACHE_TTL, default=5m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs in a production context.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// Validate checks the configuration once at startup. A missing signing
// secret is fatal in production; elsewhere the development secret is used.
func (c *Config) Validate(log zerolog.Logger) error {
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return oops.Code("CONFIG_INVALID").
				With("env", c.Env).
				Wrapf(domain.ErrSigningSecretMissing, "JWT_SECRET is required in production")
		}
		log.Warn().Str("env", c.Env).Msg("JWT_SECRET not set, using development secret")
		c.Auth.JWTSecret = devSecret
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return oops.Code("CONFIG_INVALID").Errorf("MONGO_URI and MONGO_DB are required")
	}
	if c.Recorder.Workers < 0 {
		return oops.Code("CONFIG_INVALID").With("workers", c.Recorder.Workers).Errorf("LOGIN_RECORDER_WORKERS must not be negative")
	}
	return nil
}

// SessionConfig maps the auth settings onto the session issuer.
func (c *Config) SessionConfig() service.SessionConfig {
	return service.SessionConfig{
		Secret:             c.Auth.JWTSecret,
		Issuer:             c.Auth.Issuer,
		AccessTTL:          c.Auth.AccessTTL,
		RefreshTTL:         c.Auth.RefreshTTL,
		RememberAccessTTL:  c.Auth.RememberAccessTTL,
		RememberRefreshTTL: c.Auth.RememberRefreshTTL,
	}
}
