package app

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	APIURL           string        // Backend base URL (default: http://localhost:8080)
	HTTPTimeout      time.Duration // Backend request timeout (default: 10s)
	LoginSuccessCode int           // status.statusCode of a successful login (default: 112)
	RoutesFile       string        // Optional: YAML route table, built-in table when empty

	Store           string        // Persistent scope driver: sqlite, redis, memory (default: sqlite)
	DatabaseFile    string        // SQLite file shared by consoles (default: <config dir>/tenantconsole/console.db)
	RedisAddr       string        // Redis address for the redis driver
	RedisPassword   string        // Optional
	RedisDB         int           // Redis database number (default: 0)
	RedisPrefix     string        // Key prefix (default: tenantconsole:)
	SyncInterval    time.Duration // How often the sqlite driver polls for changes (default: 500ms)
	ChangeRetention time.Duration // How long sqlite change records are kept (default: 24h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	LogFile              string        // Log destination; the TUI owns the terminal (default: <config dir>/tenantconsole/console.log)
	HousekeepingInterval time.Duration // Change log pruning interval (default: 1h)
}

func LoadConfig() Config {
	dir := configDir()

	return Config{
		APIURL:           getEnvOrDefault("CONSOLE_API_URL", "http://localhost:8080"),
		HTTPTimeout:      getEnvDurationOrDefault("CONSOLE_HTTP_TIMEOUT", 10*time.Second),
		LoginSuccessCode: getEnvIntOrDefault("CONSOLE_LOGIN_SUCCESS_CODE", 112),
		RoutesFile:       os.Getenv("CONSOLE_ROUTES_FILE"),

		Store:           getEnvOrDefault("CONSOLE_STORE", StoreSQLite),
		DatabaseFile:    getEnvOrDefault("CONSOLE_DATABASE_FILE", filepath.Join(dir, "console.db")),
		RedisAddr:       getEnvOrDefault("CONSOLE_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("CONSOLE_REDIS_PASSWORD"),
		RedisDB:         getEnvIntOrDefault("CONSOLE_REDIS_DB", 0),
		RedisPrefix:     os.Getenv("CONSOLE_REDIS_PREFIX"),
		SyncInterval:    getEnvDurationOrDefault("CONSOLE_SYNC_INTERVAL", 500*time.Millisecond),
		ChangeRetention: getEnvDurationOrDefault("CONSOLE_CHANGE_RETENTION", 24*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		LogFile:              getEnvOrDefault("LOG_FILE", filepath.Join(dir, "console.log")),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// configDir is the per-user directory holding the console's files.
func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "tenantconsole")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are milliseconds
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}

	return defaultValue
}
