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

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Documents DocumentsConfig
	Reports   ReportsConfig
	Community CommunityConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DocumentsConfig controls document storage, listing and upload validation.
type DocumentsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	MaxFileSizeBytes  int64
	AllowedMIMEs      []string
	DefaultPageSize   int
	MaxPageSize       int
	ListCacheTTL      time.Duration
	RolePreferenceTTL time.Duration
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	SummaryCacheTTL   time.Duration
}

// CommunityConfig bounds the community feed listing.
type CommunityConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.RequestTimeout = parseDuration(v.GetString("REQUEST_TIMEOUT"), 15*time.Second)
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second)

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectTimeout:   parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxDocumentSize := v.GetInt64("DOCUMENTS_MAX_FILE_SIZE")
	if maxDocumentSize <= 0 {
		maxDocumentSize = 25 * 1024 * 1024
	}
	cfg.Documents = DocumentsConfig{
		StorageDir:        v.GetString("DOCUMENTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("DOCUMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("DOCUMENTS_SIGNED_URL_TTL"), 15*time.Minute),
		MaxFileSizeBytes:  maxDocumentSize,
		AllowedMIMEs:      splitAndTrim(v.GetString("DOCUMENTS_ALLOWED_MIME_TYPES")),
		DefaultPageSize:   positiveOr(v.GetInt("DOCUMENTS_DEFAULT_PAGE_SIZE"), 25),
		MaxPageSize:       positiveOr(v.GetInt("DOCUMENTS_MAX_PAGE_SIZE"), 100),
		ListCacheTTL:      parseDuration(v.GetString("DOCUMENTS_LIST_CACHE_TTL"), time.Minute),
		RolePreferenceTTL: parseDuration(v.GetString("ROLE_PREFERENCE_TTL"), 0),
	}

	cfg.Reports = ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORTS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
		SummaryCacheTTL:   parseDuration(v.GetString("REPORTS_SUMMARY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Community = CommunityConfig{
		DefaultPageSize: positiveOr(v.GetInt("COMMUNITY_DEFAULT_PAGE_SIZE"), 20),
		MaxPageSize:     positiveOr(v.GetInt("COMMUNITY_MAX_PAGE_SIZE"), 50),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ctos")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "ctos-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DOCUMENTS_STORAGE_DIR", "./documents")
	v.SetDefault("DOCUMENTS_SIGNED_URL_SECRET", "dev_documents_secret")
	v.SetDefault("DOCUMENTS_SIGNED_URL_TTL", "15m")
	v.SetDefault("DOCUMENTS_MAX_FILE_SIZE", 25*1024*1024)
	v.SetDefault("DOCUMENTS_ALLOWED_MIME_TYPES", "application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,image/png,image/jpeg")
	v.SetDefault("DOCUMENTS_DEFAULT_PAGE_SIZE", 25)
	v.SetDefault("DOCUMENTS_MAX_PAGE_SIZE", 100)
	v.SetDefault("DOCUMENTS_LIST_CACHE_TTL", "1m")
	v.SetDefault("ROLE_PREFERENCE_TTL", "0s")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
	v.SetDefault("REPORTS_SUMMARY_CACHE_TTL", "5m")

	v.SetDefault("COMMUNITY_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("COMMUNITY_MAX_PAGE_SIZE", 50)

	v.SetDefault("ENABLE_METRICS", true)
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
