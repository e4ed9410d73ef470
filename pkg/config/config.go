package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Pricing    PricingConfig
	Photos     PhotosConfig
	Settlement SettlementConfig
	Cache      CacheConfig
	Events     EventsConfig
	Statements StatementsConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string // applied on startup when set
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PricingConfig holds the commission and sustainability fund rates applied to request totals.
type PricingConfig struct {
	CommissionRate     decimal.Decimal
	SustainabilityRate decimal.Decimal
}

// PhotosConfig controls where pickup photos are stored and how they are validated.
type PhotosConfig struct {
	StorageDir       string
	PublicBaseURL    string
	MaxFiles         int
	MaxFileSizeBytes int64
}

// SettlementConfig tunes the simulated payment settlement worker.
type SettlementConfig struct {
	Delay         time.Duration
	Workers       int
	Retries       int
	SweepSchedule string
}

type CacheConfig struct {
	Enabled    bool
	CatalogTTL time.Duration
}

// EventsConfig points the workflow event publisher at a broker. An empty URL disables publishing.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// StatementsConfig configures rendered earnings statements.
type StatementsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupSchedule string
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

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrationsDir: strings.TrimSpace(v.GetString("DB_MIGRATIONS_DIR")),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	commission, err := parseRate(v.GetString("PRICING_COMMISSION_RATE"))
	if err != nil {
		return nil, err
	}
	sustainability, err := parseRate(v.GetString("PRICING_SUSTAINABILITY_RATE"))
	if err != nil {
		return nil, err
	}
	cfg.Pricing = PricingConfig{CommissionRate: commission, SustainabilityRate: sustainability}

	maxPhotoSize := v.GetInt64("PHOTOS_MAX_FILE_SIZE")
	if maxPhotoSize <= 0 {
		maxPhotoSize = 5 * 1024 * 1024
	}
	maxPhotos := v.GetInt("PHOTOS_MAX_FILES")
	if maxPhotos <= 0 {
		maxPhotos = 5
	}
	cfg.Photos = PhotosConfig{
		StorageDir:       v.GetString("PHOTOS_STORAGE_DIR"),
		PublicBaseURL:    strings.TrimRight(v.GetString("PHOTOS_PUBLIC_BASE_URL"), "/"),
		MaxFiles:         maxPhotos,
		MaxFileSizeBytes: maxPhotoSize,
	}

	cfg.Settlement = SettlementConfig{
		Delay:         parseDuration(v.GetString("SETTLEMENT_DELAY"), 2*time.Second),
		Workers:       v.GetInt("SETTLEMENT_WORKERS"),
		Retries:       v.GetInt("SETTLEMENT_RETRIES"),
		SweepSchedule: strings.TrimSpace(v.GetString("SETTLEMENT_SWEEP_SCHEDULE")),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		CatalogTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Events = EventsConfig{
		AMQPURL:  v.GetString("AMQP_URL"),
		Exchange: v.GetString("EVENTS_EXCHANGE"),
	}

	cfg.Statements = StatementsConfig{
		StorageDir:      v.GetString("STATEMENTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("STATEMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STATEMENTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupSchedule: v.GetString("STATEMENTS_CLEANUP_SCHEDULE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ewaste")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_DIR", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PRICING_COMMISSION_RATE", "0.10")
	v.SetDefault("PRICING_SUSTAINABILITY_RATE", "0.10")

	v.SetDefault("PHOTOS_STORAGE_DIR", "./uploads/pickup-photos")
	v.SetDefault("PHOTOS_PUBLIC_BASE_URL", "http://localhost:8080/uploads/pickup-photos")
	v.SetDefault("PHOTOS_MAX_FILES", 5)
	v.SetDefault("PHOTOS_MAX_FILE_SIZE", 5*1024*1024)

	v.SetDefault("SETTLEMENT_DELAY", "2s")
	v.SetDefault("SETTLEMENT_WORKERS", 1)
	v.SetDefault("SETTLEMENT_RETRIES", 3)
	v.SetDefault("SETTLEMENT_SWEEP_SCHEDULE", "@every 1m")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CATALOG_CACHE_TTL", "15m")

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "ewaste_events")

	v.SetDefault("STATEMENTS_STORAGE_DIR", "./statements")
	v.SetDefault("STATEMENTS_SIGNED_URL_SECRET", "dev_statements_secret")
	v.SetDefault("STATEMENTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("STATEMENTS_CLEANUP_SCHEDULE", "@hourly")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, errors.New("pricing rate must be between 0 and 1")
	}
	return rate, nil
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
