package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const mb = 1 << 20

// ErrParse is returned when environment variables cannot be parsed into Config.
var ErrParse = errors.New("failed to parse configuration from environment")

// Config holds application configuration. It is loaded once at process start
// and treated as immutable afterwards.
type Config struct {
	Port            string   `env:"PORT" envDefault:"3000"`
	Env             string   `env:"ENV" envDefault:"dev"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"s3"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSS3Region        string `env:"AWS_S3_REGION"`
	S3Bucket           string `env:"S3_BUCKET"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	S3Endpoint         string `env:"S3_ENDPOINT"`
	S3ForcePathStyle   bool   `env:"S3_FORCE_PATH_STYLE"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	SSEKMSKeyID        string `env:"SSE_KMS_KEY_ID"`

	MaxFileSizeMB     float64       `env:"MAX_FILE_SIZE_MB" envDefault:"5"`
	AllowedMIME       []string      `env:"ALLOWED_MIME" envSeparator:","`
	UploadPartSizeMB  int           `env:"UPLOAD_PART_SIZE_MB" envDefault:"8"`
	UploadConcurrency int           `env:"UPLOAD_CONCURRENCY" envDefault:"8"`
	UploadTimeout     time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"5m"`
	SignedURLTTL      time.Duration `env:"SIGNED_URL_TTL" envDefault:"1h"`
	PresignPutTTL     time.Duration `env:"PRESIGN_PUT_TTL" envDefault:"15m"`
	PublicURLBase     string        `env:"PUBLIC_URL_BASE"`
	UploadKeyPrefix   string        `env:"UPLOAD_KEY_PREFIX" envDefault:"uploads"`

	DatabaseURL string `env:"DATABASE_URL"`
	SQSQueueURL string `env:"SQS_QUEUE_URL"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"0"`
}

// Load reads configuration from environment variables with sensible defaults.
// A local .env file is loaded first when present.
func Load() (Config, error) {
	// Best-effort; a missing .env is the normal case outside local dev.
	_ = godotenv.Load(".env", "cmd/.env")
	return Parse()
}

// Parse reads configuration from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParse, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	c.AWSRegion = firstNonEmpty(c.AWSRegion, c.AWSS3Region)
	c.S3Bucket = firstNonEmpty(c.S3Bucket, c.AWSS3Bucket)
	c.AllowedMIME = splitAndTrim(c.AllowedMIME)
	c.CORSAllowOrigin = splitAndTrim(c.CORSAllowOrigin)
	c.UploadKeyPrefix = strings.Trim(strings.TrimSpace(c.UploadKeyPrefix), "/")
	if c.MaxFileSizeMB <= 0 {
		c.MaxFileSizeMB = 5
	}
	if c.UploadPartSizeMB < 5 {
		c.UploadPartSizeMB = 5
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 1
	}
}

// MaxFileSizeBytes returns the byte cap applied to every upload.
func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB * mb)
}

// UploadPartSizeBytes returns the object-store part size in bytes.
func (c Config) UploadPartSizeBytes() int64 {
	return int64(c.UploadPartSizeMB) * mb
}

// StoreConfigured reports whether the selected object store has what it needs.
func (c Config) StoreConfigured() bool {
	if c.ObjectStoreType == "local" {
		return strings.TrimSpace(c.LocalStoreDir) != ""
	}
	return c.S3Bucket != "" && c.AWSRegion != ""
}

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local":
		return "local"
	default:
		return "s3"
	}
}
