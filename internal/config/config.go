package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          string
	CORSOrigins   string
	BodyLimitMB   int
	DBURL         string
	RunMigrations bool

	DBMaxOpenConns int
	DBMaxIdleConns int

	// RemoteDriver is postgres or memory.
	RemoteDriver string
	// CacheDriver is sqlite, redis or memory.
	CacheDriver     string
	CacheSQLitePath string
	RedisURL        string

	AutosaveDelay time.Duration

	ArchiveBucket  string
	ArchiveDir     string
	GCPCredentials string
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "3000"),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		BodyLimitMB:     getEnvAsInt("BODY_LIMIT_MB", 16),
		DBURL:           getEnv("DB_URL", ""),
		RunMigrations:   getEnvAsBool("RUN_MIGRATIONS", false),
		DBMaxOpenConns:  getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:  getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		RemoteDriver:    getEnv("REMOTE_DRIVER", "postgres"),
		CacheDriver:     getEnv("CACHE_DRIVER", "sqlite"),
		CacheSQLitePath: getEnv("CACHE_SQLITE_PATH", "data/floorplan-cache.db"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AutosaveDelay:   time.Duration(getEnvAsInt("AUTOSAVE_DELAY_MS", 1500)) * time.Millisecond,
		ArchiveBucket:   getEnv("GCS_ARCHIVE_BUCKET", ""),
		ArchiveDir:      getEnv("ARCHIVE_DIR", "temp/archive"),
		GCPCredentials:  getEnv("GCP_SERVICE_ACCOUNT_CREDENTIALS", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}
