package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env        string
	HTTPPort   string
	OraclePort string
	ServiceID  string

	DBDriver        string
	DatabaseDSN     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration
	RedisAddr       string
	ClaimTTL        time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	ConsulAddr      string
	OracleAddr      string
	AuthSecret      string
	AuthRequired    bool
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	CriticalDays     int
	LowStockDays     int
	LowStockQuantity int

	AnalyticsTimeout time.Duration
	BreakerFailures  int
	BreakerCooldown  time.Duration

	SweepInterval time.Duration
	SweepWorkers  int
}

// Load reads configuration from environment variables, after loading a .env
// file if one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	serviceID := os.Getenv("SERVICE_ID")
	if serviceID == "" {
		serviceID = "pharma-supply-" + uuid.New().String()
	}

	cfg := &Config{
		Env:        strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		OraclePort: getEnv("ORACLE_PORT", "50051"),
		ServiceID:  serviceID,

		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseDSN:     getEnv("DATABASE_DSN", "file:pharma.db"),
		DBMaxOpenConns:  getInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:  getInt("DB_MAX_IDLE_CONNS", 25),
		DBConnLifetime:  getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ClaimTTL:        getDuration("ALERT_CLAIM_TTL", 0),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "pharma-events"),
		ConsulAddr:      os.Getenv("CONSUL_ADDR"),
		OracleAddr:      os.Getenv("ORACLE_ADDR"),
		AuthSecret:      os.Getenv("AUTH_SECRET"),
		AuthRequired:    getBool("AUTH_REQUIRED", false),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		CriticalDays:     getInt("CRITICAL_DAYS", 30),
		LowStockDays:     getInt("LOW_STOCK_DAYS", 90),
		LowStockQuantity: getInt("LOW_STOCK_QUANTITY", 50),

		AnalyticsTimeout: time.Duration(getInt("ANALYTICS_TIMEOUT_MS", 2000)) * time.Millisecond,
		BreakerFailures:  getInt("BREAKER_FAILURES", 5),
		BreakerCooldown:  getDuration("BREAKER_COOLDOWN", 30*time.Second),

		SweepInterval: getDuration("SWEEP_INTERVAL", time.Hour),
		SweepWorkers:  getInt("SWEEP_WORKERS", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("APP_ENV must be %s or %s", EnvDevelopment, EnvProduction)
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("HTTP_PORT must be numeric, got %q", c.HTTPPort)
	}
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite, mysql or postgres, got %q", c.DBDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.CriticalDays <= 0 || c.LowStockDays <= c.CriticalDays {
		return fmt.Errorf("thresholds must satisfy 0 < CRITICAL_DAYS < LOW_STOCK_DAYS")
	}
	if c.LowStockQuantity < 0 {
		return fmt.Errorf("LOW_STOCK_QUANTITY cannot be negative")
	}
	if c.AnalyticsTimeout <= 0 {
		return fmt.Errorf("ANALYTICS_TIMEOUT_MS must be positive")
	}
	if c.SweepWorkers <= 0 {
		return fmt.Errorf("SWEEP_WORKERS must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.AuthRequired && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when AUTH_REQUIRED is set")
	}
	return nil
}

func (c *Config) Development() bool {
	return c.Env == EnvDevelopment
}

func (c *Config) StatusPolicy() domain.StatusPolicy {
	return domain.StatusPolicy{
		CriticalDays:     c.CriticalDays,
		LowStockDays:     c.LowStockDays,
		LowStockQuantity: c.LowStockQuantity,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
