package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ping     PingConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Debug       bool
	Environment string // "development", "production", "test"
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PingConfig is the policy surface of the ping engine.
type PingConfig struct {
	TTLMinutes           int // how long a pending ping stays answerable
	SweepIntervalSeconds int
	SweepBatchSize       int
	MaxDetailsLength     int
	CreateRateLimit      int64 // pings per user per hour
}

func (p PingConfig) TTL() time.Duration {
	return time.Duration(p.TTLMinutes) * time.Minute
}

func (p PingConfig) SweepInterval() time.Duration {
	return time.Duration(p.SweepIntervalSeconds) * time.Second
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Debug:       getEnvBool("DEBUG", false),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "nightowl"),
			Password: getEnv("DB_PASSWORD", "nightowl"),
			DBName:   getEnv("DB_NAME", "nightowl"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Ping: PingConfig{
			TTLMinutes:           getEnvInt("PING_TTL_MINUTES", 15),
			SweepIntervalSeconds: getEnvInt("SWEEP_INTERVAL_SECONDS", 60),
			SweepBatchSize:       getEnvInt("SWEEP_BATCH_SIZE", 100),
			MaxDetailsLength:     getEnvInt("MAX_DETAILS_LENGTH", 140),
			CreateRateLimit:      int64(getEnvInt("PING_CREATE_RATE_LIMIT", 60)),
		},
	}

	if cfg.Ping.TTLMinutes <= 0 {
		return nil, fmt.Errorf("PING_TTL_MINUTES must be positive, got %d", cfg.Ping.TTLMinutes)
	}
	if cfg.Ping.SweepIntervalSeconds <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive, got %d", cfg.Ping.SweepIntervalSeconds)
	}
	if cfg.Ping.SweepBatchSize <= 0 {
		return nil, fmt.Errorf("SWEEP_BATCH_SIZE must be positive, got %d", cfg.Ping.SweepBatchSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
