package config

import (
	"errors"
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
	BaseURL   string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Mail     MailConfig
	Uploads  UploadsConfig
	Finance  FinanceConfig
	Exams    ExamsConfig
	DevAuth  DevAuthConfig
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

type JWTConfig struct {
	Secret            string
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

// MailConfig configures the transactional email provider.
type MailConfig struct {
	Enabled         bool
	SendgridAPIKey  string
	AdmissionsFrom  string
	SupportFrom     string
	AdminFrom       string
	SubjectPrefix   string
	QueueWorkers    int
	QueueRetries    int
	QueueRetryDelay time.Duration
}

// UploadsConfig controls stored document validation and signed URLs.
type UploadsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// FinanceConfig holds fee workflow tuning.
type FinanceConfig struct {
	SeatDepositRatio  float64
	DashboardCacheTTL time.Duration
	ReceiptIssuer     string
}

// ExamsConfig holds exam pool pricing.
type ExamsConfig struct {
	SeatCostCredits int64
}

// DevAuthConfig gates the development-only login bypass.
type DevAuthConfig struct {
	BypassSecret string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.BaseURL = v.GetString("APP_BASE_URL")

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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mail = MailConfig{
		Enabled:         v.GetBool("MAIL_ENABLED"),
		SendgridAPIKey:  v.GetString("SENDGRID_API_KEY"),
		AdmissionsFrom:  v.GetString("MAIL_FROM_ADMISSIONS"),
		SupportFrom:     v.GetString("MAIL_FROM_SUPPORT"),
		AdminFrom:       v.GetString("MAIL_FROM_ADMIN"),
		SubjectPrefix:   v.GetString("MAIL_SUBJECT_PREFIX"),
		QueueWorkers:    v.GetInt("MAIL_QUEUE_WORKERS"),
		QueueRetries:    v.GetInt("MAIL_QUEUE_RETRIES"),
		QueueRetryDelay: parseDuration(v.GetString("MAIL_QUEUE_RETRY_DELAY"), 5*time.Second),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 8 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 24*time.Hour),
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
	}

	cfg.Finance = FinanceConfig{
		SeatDepositRatio:  v.GetFloat64("FINANCE_SEAT_DEPOSIT_RATIO"),
		DashboardCacheTTL: parseDuration(v.GetString("FINANCE_DASHBOARD_CACHE_TTL"), 5*time.Minute),
		ReceiptIssuer:     v.GetString("FINANCE_RECEIPT_ISSUER"),
	}

	cfg.Exams = ExamsConfig{
		SeatCostCredits: v.GetInt64("EXAM_SEAT_COST_CREDITS"),
	}

	cfg.DevAuth = DevAuthConfig{
		BypassSecret: v.GetString("DEV_LOGIN_BYPASS_SECRET"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_ADMISSIONS", "admissions@aeropoint.academy")
	v.SetDefault("MAIL_FROM_SUPPORT", "support@aeropoint.academy")
	v.SetDefault("MAIL_FROM_ADMIN", "admin@aeropoint.academy")
	v.SetDefault("MAIL_SUBJECT_PREFIX", "[Aeropoint Academy] ")
	v.SetDefault("MAIL_QUEUE_WORKERS", 2)
	v.SetDefault("MAIL_QUEUE_RETRIES", 3)
	v.SetDefault("MAIL_QUEUE_RETRY_DELAY", "5s")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "24h")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 8*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "image/jpeg,image/png,application/pdf")

	v.SetDefault("FINANCE_SEAT_DEPOSIT_RATIO", 0.40)
	v.SetDefault("FINANCE_DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("FINANCE_RECEIPT_ISSUER", "Aeropoint Aviation Training Academy")

	v.SetDefault("EXAM_SEAT_COST_CREDITS", 300)

	v.SetDefault("DEV_LOGIN_BYPASS_SECRET", "")
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
