package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	S3     S3Config
	Model  ModelConfig
	Cache  CacheConfig
	Log    LogConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for uploaded source documents.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// ModelConfig holds generative model client settings.
type ModelConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// CacheConfig holds prompt cache retention settings.
type CacheConfig struct {
	MaxAgeDays      int           `mapstructure:"max_age_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// MaxAge returns the retention window as a duration.
func (c *CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the INVOFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invoflow")
	v.SetDefault("db.password", "invoflow_secret")
	v.SetDefault("db.name", "invoflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "invoflow-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Model defaults
	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.default_model", "gemini-1.5-flash")
	v.SetDefault("model.timeout_secs", 60)

	// Cache defaults
	v.SetDefault("cache.max_age_days", 30)
	v.SetDefault("cache.cleanup_interval", "6h")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":            "INVOFLOW_SERVER_PORT",
		"server.read_timeout":    "INVOFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":   "INVOFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":     "INVOFLOW_SERVER_ENVIRONMENT",
		"db.host":                "INVOFLOW_DB_HOST",
		"db.port":                "INVOFLOW_DB_PORT",
		"db.user":                "INVOFLOW_DB_USER",
		"db.password":            "INVOFLOW_DB_PASSWORD",
		"db.name":                "INVOFLOW_DB_NAME",
		"db.sslmode":             "INVOFLOW_DB_SSLMODE",
		"db.max_open":            "INVOFLOW_DB_MAX_OPEN",
		"db.max_idle":            "INVOFLOW_DB_MAX_IDLE",
		"s3.region":              "INVOFLOW_S3_REGION",
		"s3.bucket":              "INVOFLOW_S3_BUCKET",
		"s3.endpoint":            "INVOFLOW_S3_ENDPOINT",
		"s3.access_key":          "INVOFLOW_S3_ACCESS_KEY",
		"s3.secret_key":          "INVOFLOW_S3_SECRET_KEY",
		"s3.max_file_size_mb":    "INVOFLOW_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":      "INVOFLOW_S3_PRESIGN_EXPIRY",
		"model.provider":         "INVOFLOW_MODEL_PROVIDER",
		"model.api_key":          "INVOFLOW_MODEL_API_KEY",
		"model.default_model":    "INVOFLOW_MODEL_DEFAULT_MODEL",
		"model.timeout_secs":     "INVOFLOW_MODEL_TIMEOUT_SECS",
		"cache.max_age_days":     "INVOFLOW_CACHE_MAX_AGE_DAYS",
		"cache.cleanup_interval": "INVOFLOW_CACHE_CLEANUP_INTERVAL",
		"log.level":              "INVOFLOW_LOG_LEVEL",
		"log.format":             "INVOFLOW_LOG_FORMAT",
		"cors.allowed_origins":   "INVOFLOW_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if INVOFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVOFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Model = ModelConfig{
		Provider:     v.GetString("model.provider"),
		APIKey:       v.GetString("model.api_key"),
		DefaultModel: v.GetString("model.default_model"),
		TimeoutSecs:  v.GetInt("model.timeout_secs"),
	}
	cfg.Cache = CacheConfig{
		MaxAgeDays:      v.GetInt("cache.max_age_days"),
		CleanupInterval: v.GetDuration("cache.cleanup_interval"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
