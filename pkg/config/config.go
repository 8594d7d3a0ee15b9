package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Release   string

	Backend   BackendConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Sentry    SentryConfig
	Periods   PeriodsConfig
	Invariant InvariantConfig
}

// BackendConfig points at the grade-management REST API that owns period storage.
type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	ServiceToken string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig verifies bearer tokens locally when Secret is set. Secret may only be empty in
// development with the audit store off.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type SentryConfig struct {
	DSN string
}

// PeriodsConfig toggles the period list cache and the activation audit trail.
type PeriodsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	AuditEnabled bool
}

// InvariantConfig sizes the background worker that re-checks the single-current-period rule.
type InvariantConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Release = v.GetString("RELEASE")

	cfg.Backend = BackendConfig{
		BaseURL:      strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		MaxRetries:   v.GetInt("BACKEND_MAX_RETRIES"),
		ServiceToken: v.GetString("BACKEND_SERVICE_TOKEN"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sentry = SentryConfig{DSN: v.GetString("SENTRY_DSN")}

	cfg.Periods = PeriodsConfig{
		CacheEnabled: v.GetBool("ENABLE_PERIOD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("PERIOD_CACHE_TTL"), 2*time.Minute),
		AuditEnabled: v.GetBool("ENABLE_ACTIVATION_AUDIT"),
	}

	cfg.Invariant = InvariantConfig{
		Workers:    v.GetInt("INVARIANT_WORKERS"),
		MaxRetries: v.GetInt("INVARIANT_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("INVARIANT_RETRY_DELAY"), 5*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects unsigned-token mode where no backend call would re-check the caller.
func (c *Config) validate() error {
	if c.JWT.Secret != "" {
		return nil
	}
	if c.Env == EnvProduction {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.Periods.AuditEnabled {
		return errors.New("JWT_SECRET is required when ENABLE_ACTIVATION_AUDIT is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("RELEASE", "dev")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:3001/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_MAX_RETRIES", 2)
	v.SetDefault("BACKEND_SERVICE_TOKEN", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "notas_gateway")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SENTRY_DSN", "")

	v.SetDefault("ENABLE_PERIOD_CACHE", false)
	v.SetDefault("PERIOD_CACHE_TTL", "2m")
	v.SetDefault("ENABLE_ACTIVATION_AUDIT", false)

	v.SetDefault("INVARIANT_WORKERS", 1)
	v.SetDefault("INVARIANT_MAX_RETRIES", 2)
	v.SetDefault("INVARIANT_RETRY_DELAY", "5s")
}

// viper reports a missing explicit config file as a plain *fs.PathError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
