package config

import "time"

// Config holds runtime configuration for the promo site.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	HTTP    HTTPConfig    `mapstructure:"http" validate:"required"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Admin   AdminConfig   `mapstructure:"admin" validate:"required"`
	Contact ContactConfig `mapstructure:"contact"`
}

// HTTPConfig configures the public HTTP listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	DSN        string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// MongoConfig describes the document database. An empty or malformed URI
// selects the in-memory store.
type MongoConfig struct {
	URI                string        `mapstructure:"uri"`
	DBName             string        `mapstructure:"db_name"`
	BonusesCollection  string        `mapstructure:"bonuses_collection" validate:"required"`
	SettingsCollection string        `mapstructure:"settings_collection" validate:"required"`
	ContactCollection  string        `mapstructure:"contact_collection" validate:"required"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig configures the optional Redis instance backing the page cache
// and the contact form rate limiter.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// CacheConfig configures the public page cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AdminConfig holds the shared admin secret.
type AdminConfig struct {
	Password string `mapstructure:"password" validate:"required"`
}

// ContactConfig limits contact form submissions per client.
type ContactConfig struct {
	RateLimit       int           `mapstructure:"rate_limit" validate:"gte=0"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// IsProduction reports whether the site runs in production mode.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
