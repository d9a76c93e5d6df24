// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Database    DatabaseConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Renderer    RendererConfig
	Label       LabelConfig
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

// StorageConfig is used when no S3 credentials are configured.
type StorageConfig struct {
	LocalPath string
	PublicURL string
}

type RendererConfig struct {
	BaseURL       string
	Dpmm          string
	Rotation      int
	Timeout       int // in seconds
	MaxConcurrent int
	RateLimit     float64 // requests per second, 0 disables
	RateBurst     int
	TempDir       string
}

type LabelConfig struct {
	DefaultSize string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "labelhub"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "labelhub-artifacts"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Storage: StorageConfig{
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			PublicURL: getEnv("STORAGE_PUBLIC_URL", "http://localhost:1337/uploads"),
		},
		Renderer: RendererConfig{
			BaseURL:       strings.TrimRight(getEnv("RENDER_BASE_URL", "http://api.labelary.com"), "/"),
			Dpmm:          getEnv("RENDER_DPMM", "8dpmm"),
			Rotation:      getEnvAsInt("RENDER_ROTATION", 180),
			Timeout:       getEnvAsInt("RENDER_TIMEOUT", 30),
			MaxConcurrent: getEnvAsInt("RENDER_MAX_CONCURRENT", 3),
			RateLimit:     getEnvAsFloat("RENDER_RATE_LIMIT", 3),
			RateBurst:     getEnvAsInt("RENDER_RATE_BURST", 3),
			TempDir:       getEnv("RENDER_TEMP_DIR", os.TempDir()),
		},
		Label: LabelConfig{
			DefaultSize: getEnv("LABEL_DEFAULT_SIZE", "4x6"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Renderer.BaseURL == "" {
		return fmt.Errorf("render base URL is required")
	}

	if c.Renderer.MaxConcurrent < 1 {
		return fmt.Errorf("render max concurrency must be at least 1, got %d", c.Renderer.MaxConcurrent)
	}

	if c.Renderer.RateLimit < 0 {
		return fmt.Errorf("render rate limit must not be negative")
	}

	return nil
}

func (c *Config) UseS3() bool {
	return c.AWS.AccessKeyID != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
