package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EventsNone  = "none"
	EventsRedis = "redis"
	EventsKafka = "kafka"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	MigrationsDir  string        `mapstructure:"MIGRATIONS_DIR"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	EventsBackend  string        `mapstructure:"EVENTS_BACKEND"`
	EventsStream   string        `mapstructure:"EVENTS_STREAM"`
	KafkaBrokers   []string      `mapstructure:"KAFKA_BROKERS"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StatusCacheTTL time.Duration `mapstructure:"STATUS_CACHE_TTL"`
	// Catalog codes with workflow meaning. Overview and recent activity treat
	// CompleteStatus as terminal; patient stats use DischargeStatus.
	EntryStatus     string `mapstructure:"ENTRY_STATUS"`
	CompleteStatus  string `mapstructure:"COMPLETE_STATUS"`
	DischargeStatus string `mapstructure:"DISCHARGE_STATUS"`
	ExportS3Bucket  string `mapstructure:"EXPORT_S3_BUCKET"`
	ExportS3Prefix  string `mapstructure:"EXPORT_S3_PREFIX"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "MIGRATIONS_DIR", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "EVENTS_BACKEND", "EVENTS_STREAM", "KAFKA_BROKERS",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "REQUEST_TIMEOUT", "STATUS_CACHE_TTL",
	"ENTRY_STATUS", "COMPLETE_STATUS", "DISCHARGE_STATUS",
	"EXPORT_S3_BUCKET", "EXPORT_S3_PREFIX",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("EVENTS_BACKEND", EventsNone)
	v.SetDefault("EVENTS_STREAM", "patient-status-transitions")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STATUS_CACHE_TTL", "5m")
	v.SetDefault("ENTRY_STATUS", "Checked In")
	v.SetDefault("COMPLETE_STATUS", "Complete")
	v.SetDefault("DISCHARGE_STATUS", "Dismissal")
	v.SetDefault("EXPORT_S3_PREFIX", "reports/")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
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

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is consistent enough to serve.
func (c *Config) Validate() error {
	switch c.EventsBackend {
	case EventsNone, "":
	case EventsRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when EVENTS_BACKEND is %q", EventsRedis)
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND is %q", EventsKafka)
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be %q, %q or %q, got %q", EventsNone, EventsRedis, EventsKafka, c.EventsBackend)
	}

	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set outside development (current ENV=%q)", c.Env)
	}

	if strings.TrimSpace(c.EntryStatus) == "" {
		return fmt.Errorf("ENTRY_STATUS must not be empty")
	}
	if strings.TrimSpace(c.CompleteStatus) == "" {
		return fmt.Errorf("COMPLETE_STATUS must not be empty")
	}
	if strings.TrimSpace(c.DischargeStatus) == "" {
		return fmt.Errorf("DISCHARGE_STATUS must not be empty")
	}

	return nil
}
