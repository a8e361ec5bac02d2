package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HorizonURL            string
	HorizonRetryMax       int
	HorizonRetryBaseDelay time.Duration
	HorizonRequestTimeout time.Duration
	HorizonPageSize       int
	HorizonMaxPages       int
	HorizonRateLimit      float64
	HorizonBurst          int

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	TierTablePath   string
	AccrualPeriod   time.Duration
	WalletWorkers   int
	BalanceCacheTTL time.Duration

	AnchorWorkerInterval time.Duration
	AnchorBatchSize      int
	ReportWorkerInterval time.Duration

	HTTPPort    string
	AdminAPIKey string

	GoogleSheetsID        string
	GoogleCredentialsJSON string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		HorizonURL:            envOrDefault("HORIZON_URL", "https://horizon.stellar.org"),
		HorizonRetryMax:       envOrDefaultInt("HORIZON_RETRY_MAX", 3),
		HorizonRetryBaseDelay: envOrDefaultDuration("HORIZON_RETRY_BASE_DELAY", 2*time.Second),
		HorizonRequestTimeout: envOrDefaultPositiveDuration("HORIZON_REQUEST_TIMEOUT", 10*time.Second),
		HorizonPageSize:       envOrDefaultInt("HORIZON_PAGE_SIZE", 200),
		HorizonMaxPages:       envOrDefaultInt("HORIZON_MAX_PAGES", 50),
		HorizonRateLimit:      envOrDefaultFloat("HORIZON_RATE_LIMIT", 5),
		HorizonBurst:          envOrDefaultInt("HORIZON_BURST", 5),

		StoreDriver: strings.ToLower(envOrDefault("STORE_DRIVER", StorePostgres)),
		SQLitePath:  envOrDefault("SQLITE_PATH", "divtracker.db"),

		TierTablePath:   os.Getenv("TIER_TABLE_PATH"),
		AccrualPeriod:   envOrDefaultPositiveDuration("ACCRUAL_PERIOD", 7*24*time.Hour),
		WalletWorkers:   envOrDefaultInt("WALLET_WORKERS", 4),
		BalanceCacheTTL: envOrDefaultDuration("BALANCE_CACHE_TTL", 30*time.Second),

		AnchorWorkerInterval: envOrDefaultPositiveDuration("ANCHOR_WORKER_INTERVAL", 10*time.Minute),
		AnchorBatchSize:      envOrDefaultInt("ANCHOR_BATCH_SIZE", 50),
		ReportWorkerInterval: envOrDefaultPositiveDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),

		HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		GoogleSheetsID:        os.Getenv("GOOGLE_SHEETS_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		cfg.DatabaseURL = envOrDefaultWarn("DATABASE_URL", "")
	case StoreSQLite:
	default:
		slog.Warn("unknown store driver, using default", "key", "STORE_DRIVER", "value", cfg.StoreDriver, "default", StorePostgres)
		cfg.StoreDriver = StorePostgres
		cfg.DatabaseURL = envOrDefaultWarn("DATABASE_URL", "")
	}
	return cfg
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSheetsID != "" && c.GoogleCredentialsJSON != ""
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envOrDefaultPositiveDuration is envOrDefaultDuration for values that must be
// above zero, such as ticker intervals.
func envOrDefaultPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	d := envOrDefaultDuration(key, defaultVal)
	if d <= 0 {
		slog.Warn("non-positive duration env var, using default", "key", key, "value", d, "default", defaultVal)
		return defaultVal
	}
	return d
}
