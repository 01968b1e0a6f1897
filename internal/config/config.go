package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the service reads from the environment.
// main loads .env via godotenv before calling Load, so plain env vars and
// .env entries behave the same.
type Config struct {
	Port          string
	PublicBaseURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SigningSecret        string
	LegacyUnsignedTokens bool

	ShortCodeLen    int
	MaxUploadBytes  int64
	SessionTTL      time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func Load() Config {
	return Config{
		Port:          getenv("PORT", "5050"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", getenv("BASE_URL", "http://localhost:5050")),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "transfert-files"),
		MinioUseSSL:    getbool("MINIO_USE_SSL", false),

		// Empty addr means short links are disabled and every link is a
		// self-contained signed token.
		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		SigningSecret:        getenv("LINK_SIGNING_SECRET", ""),
		LegacyUnsignedTokens: getbool("LEGACY_UNSIGNED_TOKENS", false),

		ShortCodeLen:    getint("SHORT_CODE_LEN", 8),
		MaxUploadBytes:  getint64("MAX_UPLOAD_BYTES", 10*1024*1024*1024),
		SessionTTL:      getduration("SESSION_TTL", time.Hour),
		RateLimitMax:    getint("RATE_LIMIT_MAX", 30),
		RateLimitWindow: getduration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// ShortLinksEnabled reports whether a key-value store is configured.
func (c Config) ShortLinksEnabled() bool {
	return c.RedisAddr != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getint64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
