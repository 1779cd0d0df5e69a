// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is read once at startup and handed to each component that needs it.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`

	Redis    Redis
	Postgres Postgres

	// TokenExpireTime is a Go duration, or "never"/"0" for tokens without expiry.
	TokenExpireTime string `env:"TOKEN_EXPIRE_TIME" envDefault:"24h"`

	// Ed25519 key files for signing session tokens. When unset a fresh pair is generated at startup,
	// which invalidates every token on restart.
	SessionPrivateKeyPath string `env:"SESSION_PRIVATE_KEY_PATH"`
	SessionPublicKeyPath  string `env:"SESSION_PUBLIC_KEY_PATH"`

	RoomTTL     time.Duration `env:"ROOM_TTL" envDefault:"30m"`
	PresenceTTL time.Duration `env:"PRESENCE_TTL" envDefault:"60s"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`
}

type Redis struct {
	Addr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB" envDefault:"0"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

type Postgres struct {
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	Database string `env:"PG_DATABASE" envDefault:"baduk"`
	SSLMode  string `env:"PG_SSLMODE" envDefault:"disable"`
}

// URL returns the postgres connection string.
func (p Postgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Load parses the process environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.TokenTTL(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// TokenTTL returns the session token lifetime; 0 means tokens never expire.
func (c Config) TokenTTL() (time.Duration, error) {
	switch c.TokenExpireTime {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenExpireTime)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Level returns the configured logrus level.
func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if lvl, err := c.Level(); err == nil {
		logger.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
