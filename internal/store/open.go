package store

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sohoz88/promo-site/pkg/config"
	"github.com/sohoz88/promo-site/pkg/metrics"
)

// SettingsID is the fixed key of the site settings singleton.
const SettingsID = "global_settings"

const placeholderURI = "YOUR_MONGODB_URI_HERE"

var credentialsPattern = regexp.MustCompile(`://[^@/]+@`)

// RedactURI hides the user-info part of a connection string.
func RedactURI(uri string) string {
	return credentialsPattern.ReplaceAllString(uri, "://***:***@")
}

// Open resolves the persistence backend once at startup. It never fails:
// missing or malformed configuration and unreachable deployments all
// degrade to a seeded in-memory store with a warning.
func Open(ctx context.Context, cfg config.MongoConfig, log *slog.Logger) Client {
	if log == nil {
		log = slog.Default()
	}

	uri := strings.TrimSpace(cfg.URI)
	if reason := invalidURIReason(uri); reason != "" {
		log.Warn("mongodb not configured, using in-memory store; data will not persist",
			slog.String("reason", reason))
		return openMemory(cfg, log)
	}
	if strings.TrimSpace(cfg.DBName) == "" {
		log.Warn("mongodb database name missing, using in-memory store; data will not persist")
		return openMemory(cfg, log)
	}

	client, err := ConnectMongo(ctx, uri, cfg.DBName, cfg.ConnectTimeout, log)
	if err != nil {
		log.Warn("mongodb unreachable, falling back to in-memory store",
			slog.String("uri", RedactURI(uri)),
			slog.String("db", cfg.DBName),
			slog.Any("error", err),
		)
		return openMemory(cfg, log)
	}

	log.Info("connected to mongodb",
		slog.String("uri", RedactURI(uri)),
		slog.String("db", cfg.DBName),
	)
	metrics.SetStoreMode(string(ModeMongo))

	return client
}

// DefaultSettingsDocument is the settings record the in-memory store starts with.
func DefaultSettingsDocument() Document {
	return Document{
		IDField:           SettingsID,
		"backgroundType":  "color",
		"backgroundValue": "#E0F2FE",
		"updatedAt":       time.Now().UTC(),
	}
}

func openMemory(cfg config.MongoConfig, log *slog.Logger) *MemoryClient {
	settings := cfg.SettingsCollection
	if settings == "" {
		settings = "siteSettings"
	}
	bonuses := cfg.BonusesCollection
	if bonuses == "" {
		bonuses = "bonuses"
	}

	client := NewMemoryClient(log, WithSeed(settings, DefaultSettingsDocument()))
	client.Collection(bonuses)
	metrics.SetStoreMode(string(ModeMemory))

	return client
}

func invalidURIReason(uri string) string {
	switch {
	case uri == "":
		return "MONGODB_URI is empty"
	case uri == placeholderURI:
		return "MONGODB_URI is a placeholder"
	case !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://"):
		return "MONGODB_URI must start with mongodb:// or mongodb+srv://"
	case uri == "mongodb://" || uri == "mongodb+srv://":
		return "MONGODB_URI has no host"
	default:
		return ""
	}
}
