package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleProjectID    string
	GooglePubSubTopic  string

	FirebaseCredentials string

	// CronSecret authenticates the external scheduled caller of the sync
	// trigger endpoint.
	CronSecret string

	SyncLabel         string
	SyncPageSize      int64
	SyncMaxTotal      int64
	SyncInterval      time.Duration
	SyncRunTimeout    time.Duration
	StaleRunThreshold time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	refreshExpiry := 168 * time.Hour // 7 days
	if exp := os.Getenv("JWT_REFRESH_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			refreshExpiry = parsed
		}
	}

	runTimeout := getDuration("SYNC_RUN_TIMEOUT", 5*time.Minute)

	// A running sync-run row older than this is treated as abandoned and no
	// longer blocks new runs.
	staleThreshold := getDuration("SYNC_STALE_RUN_THRESHOLD", 3*runTimeout)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/gmail/auth/callback"),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		CronSecret: getEnv("CRON_SECRET", ""),

		SyncLabel:         getEnv("SYNC_LABEL", "ATS/Applications"),
		SyncPageSize:      getInt64("SYNC_PAGE_SIZE", 200),
		SyncMaxTotal:      getInt64("SYNC_MAX_TOTAL", 5000),
		SyncInterval:      getDuration("SYNC_INTERVAL", time.Hour),
		SyncRunTimeout:    runTimeout,
		StaleRunThreshold: staleThreshold,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
