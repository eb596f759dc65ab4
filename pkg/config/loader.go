// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAdminPassword is used when ADMIN_PASSWORD is not provided.
const DefaultAdminPassword = "sohoz88admin"

// envBindings maps config keys to the environment variable names the site
// has always used, on top of the automatic KEY_SUBKEY mapping.
var envBindings = map[string][]string{
	"app_env":                   {"APP_ENV", "NODE_ENV"},
	"mongo.uri":                 {"MONGODB_URI"},
	"mongo.db_name":             {"MONGODB_DB_NAME"},
	"mongo.bonuses_collection":  {"BONUSES_COLLECTION_NAME"},
	"mongo.settings_collection": {"SETTINGS_COLLECTION_NAME"},
	"mongo.contact_collection":  {"CONTACT_COLLECTION_NAME"},
	"admin.password":            {"ADMIN_PASSWORD"},
	"http.addr":                 {"HTTP_ADDR"},
	"http.trust_proxy":          {"TRUST_PROXY"},
	"logger.level":              {"LOG_LEVEL"},
	"sentry.dsn":                {"SENTRY_DSN"},
}

// Load reads configuration from an optional YAML file and environment
// variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	if err := loadDotenv(".env.local", ".env"); err != nil {
		return nil, nil, err
	}

	env := firstEnv("APP_ENV", "NODE_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = env
	}

	return cfg, v, nil
}

// loadDotenv reads each env file in order. Earlier files win because
// godotenv never overrides a variable that is already set. Missing files
// are skipped.
func loadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Watch invokes onChange with the re-decoded configuration whenever the
// config file changes on disk. Invalid revisions are reported through onError.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.trust_proxy", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.db_name", "")
	v.SetDefault("mongo.bonuses_collection", "bonuses")
	v.SetDefault("mongo.settings_collection", "siteSettings")
	v.SetDefault("mongo.contact_collection", "contactMessages")
	v.SetDefault("mongo.connect_timeout", 5*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("admin.password", DefaultAdminPassword)

	v.SetDefault("contact.rate_limit", 5)
	v.SetDefault("contact.rate_limit_window", 10*time.Minute)
	v.SetDefault("contact.cleanup_interval", time.Minute)
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
	}

	return ""
}
