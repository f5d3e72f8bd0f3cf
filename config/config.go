package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// CacheConfig holds the in-memory cache tuning knobs.
// Counts change slowly relative to read frequency, so they get the long TTL;
// membership flags are written directly by mutations and can live long too.
// Lists are invalidated on every mutation, the TTL is just a backstop.
type CacheConfig struct {
	CountTTL        time.Duration
	MembershipTTL   time.Duration
	ListTTL         time.Duration
	MaxEntries      int
	MaxCachedPage   int
	BatchSize       int
	RetryAttempts   int
	RetryBackoff    time.Duration
	NotifyQueueSize int
}

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URL           string
	ClientID      string
	MaxReconnects int
	ReconnectWait time.Duration
}

// RedisConfig holds redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoadDatabaseConfig loads database configuration from environment variables
func LoadDatabaseConfig(prefix string) (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{
		Host:         getEnv(prefix+"DB_HOST", "postgres"),
		User:         getEnv(prefix+"DB_USER", "postgres"),
		Password:     getEnv(prefix+"DB_PASSWORD", "postgres"),
		DBName:       getEnv(prefix+"DB_NAME", "followgraph_service_db"),
		SSLMode:      getEnv(prefix+"DB_SSLMODE", "disable"),
		MaxOpenConns: getEnvAsInt(prefix+"DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns: getEnvAsInt(prefix+"DB_MAX_IDLE_CONNS", 5),
		MaxLifetime:  getEnvAsDuration(prefix+"DB_MAX_LIFETIME", 5*time.Minute),
	}

	var err error
	cfg.Port, err = strconv.Atoi(getEnv(prefix+"DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid database port: %w", err)
	}

	if cfg.DBName == "" {
		return nil, fmt.Errorf("database name is required (set %sDB_NAME)", prefix)
	}

	return cfg, nil
}

// LoadCacheConfig loads cache configuration from environment variables
func LoadCacheConfig() *CacheConfig {
	return &CacheConfig{
		CountTTL:        getEnvAsDuration("CACHE_COUNT_TTL", 10*time.Minute),
		MembershipTTL:   getEnvAsDuration("CACHE_MEMBERSHIP_TTL", 10*time.Minute),
		ListTTL:         getEnvAsDuration("CACHE_LIST_TTL", 2*time.Minute),
		MaxEntries:      getEnvAsInt("CACHE_MAX_ENTRIES", 2048),
		MaxCachedPage:   getEnvAsInt("CACHE_MAX_CACHED_PAGE", 20),
		BatchSize:       getEnvAsInt("FOLLOW_BATCH_SIZE", 50),
		RetryAttempts:   getEnvAsInt("STORE_RETRY_ATTEMPTS", 2),
		RetryBackoff:    getEnvAsDuration("STORE_RETRY_BACKOFF", 200*time.Millisecond),
		NotifyQueueSize: getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
	}
}

// LoadNATSConfig loads NATS configuration from environment variables
func LoadNATSConfig() *NATSConfig {
	return &NATSConfig{
		URL:           getEnv("NATS_URL", "nats://nats:4222"),
		ClientID:      getEnv("NATS_CLIENT_ID", "followgraph-service"),
		MaxReconnects: getEnvAsInt("NATS_MAX_RECONNECTS", 10),
		ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
	}
}

// LoadRedisConfig loads redis configuration from environment variables
func LoadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "redis:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
