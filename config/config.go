package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMinio = "minio"
	StorageDisk  = "disk"
)

// Config holds all process-wide settings. It is resolved once at startup.
type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string
	SessionSecret  string
	AllowedOrigins []string
	LogFormat      string

	StorageBackend string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	UploadDir      string
	PublicBaseURL  string

	CacheTTL           time.Duration
	CacheTimeout       time.Duration
	StoreTimeout       time.Duration
	RateLimitPerMinute int64
}

// Load reads configuration from the environment, after loading a .env file
// when one is present. Every missing required setting is reported in the
// returned error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	var errs []error
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
		return v
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    required("DATABASE_URL"),
		RedisURL:       required("REDIS_URL"),
		SessionSecret:  required("SESSION_SECRET_KEY"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost,http://localhost:5173,http://127.0.0.1:5173")),
		LogFormat:      getEnv("LOG_FORMAT", "text"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMinio)),
		MinioBucket:    getEnv("MINIO_BUCKET", "chat-files"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploaded_files"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
	}

	switch cfg.StorageBackend {
	case StorageMinio:
		cfg.MinioEndpoint = required("MINIO_ENDPOINT")
		cfg.MinioAccessKey = required("MINIO_ACCESS_KEY")
		cfg.MinioSecretKey = required("MINIO_SECRET_KEY")
	case StorageDisk:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMinio, StorageDisk, cfg.StorageBackend))
	}

	var err error
	if cfg.MinioUseSSL, err = strconv.ParseBool(getEnv("MINIO_USE_SSL", "false")); err != nil {
		errs = append(errs, fmt.Errorf("MINIO_USE_SSL: %w", err))
	}
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "5m")); err != nil {
		errs = append(errs, fmt.Errorf("CACHE_TTL: %w", err))
	}
	if cfg.CacheTimeout, err = time.ParseDuration(getEnv("CACHE_TIMEOUT", "500ms")); err != nil {
		errs = append(errs, fmt.Errorf("CACHE_TIMEOUT: %w", err))
	}
	if cfg.StoreTimeout, err = time.ParseDuration(getEnv("STORE_TIMEOUT", "5s")); err != nil {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT: %w", err))
	}
	if cfg.RateLimitPerMinute, err = strconv.ParseInt(getEnv("RATE_LIMIT_PER_MINUTE", "60"), 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
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
