package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the platform
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Rules    Rules
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ValidateSchema  bool
}

// RedisConfig holds Redis configuration. An empty URL disables Redis: events
// stay in process and the ROI run lock is process-local.
type RedisConfig struct {
	URL          string
	EventChannel string
	RunLockTTL   time.Duration
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort        string
	GRPCPort        string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	ThrottleLimit   int
	ThrottleWindow  time.Duration
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	rules, err := loadRules()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_DATABASE", "evolentra"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ValidateSchema:  getEnvBool("DB_VALIDATE_SCHEMA", true),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			EventChannel: getEnv("REDIS_EVENT_CHANNEL", "ledger-events"),
			RunLockTTL:   getEnvDuration("ROI_RUN_LOCK_TTL", 30*time.Minute),
		},
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			GRPCPort:        getEnv("GRPC_PORT", "50051"),
			AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			ThrottleLimit:   getEnvInt("THROTTLE_LIMIT", 10),
			ThrottleWindow:  getEnvDuration("THROTTLE_WINDOW", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "evolentra"),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Rules: rules,
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func loadRules() (Rules, error) {
	r := DefaultRules()
	var err error

	if r.MinWithdrawal, err = getEnvDecimal("MIN_WITHDRAWAL", r.MinWithdrawal); err != nil {
		return Rules{}, err
	}
	if r.WithdrawalFeePercent, err = getEnvDecimal("WITHDRAWAL_FEE_PERCENT", r.WithdrawalFeePercent); err != nil {
		return Rules{}, err
	}
	if r.BinaryCommissionRate, err = getEnvDecimal("BINARY_COMMISSION_RATE", r.BinaryCommissionRate); err != nil {
		return Rules{}, err
	}
	if v := os.Getenv("DEPOSIT_CURRENCIES"); v != "" {
		r.DepositCurrencies = splitCurrencies(v)
	}
	if v := os.Getenv("WITHDRAWAL_CURRENCIES"); v != "" {
		r.WithdrawalCurrencies = splitCurrencies(v)
	}
	if v := os.Getenv("ROI_WITHDRAWAL_DAY"); v != "" {
		if r.RoiWithdrawalDay, err = parseWeekday(v); err != nil {
			return Rules{}, err
		}
	}
	r.BaseCurrency = strings.ToUpper(getEnv("BASE_CURRENCY", r.BaseCurrency))
	r.PlacementAttempts = getEnvInt("PLACEMENT_ATTEMPTS", r.PlacementAttempts)
	if tz := os.Getenv("BUSINESS_TIMEZONE"); tz != "" {
		if r.Location, err = time.LoadLocation(tz); err != nil {
			return Rules{}, fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
		}
	}

	return r, r.Validate()
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitCurrencies(value string) []string {
	list := splitList(value)
	for i := range list {
		list[i] = strings.ToUpper(list[i])
	}
	return list
}

func parseWeekday(value string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), value) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid ROI_WITHDRAWAL_DAY %q", value)
}
