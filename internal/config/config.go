package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

type Config struct {
	Port              string
	AppEnv            string
	StorageDriver     string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	AWSAccessKey      string
	AWSSecretKey      string
	StoragePublicBase string // browser-facing base URL, e.g. "https://cdn.example.com/uploads"
	StorageUseSSL     bool
	AllowedOrigins    []string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		AppEnv:            getEnv("APP_ENV", "development"),
		StorageDriver:     getEnv("STORAGE_DRIVER", DriverS3),
		S3Bucket:          getEnv("S3_BUCKET", "uploads"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		AWSAccessKey:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", ""),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "true") == "true",
		AllowedOrigins:    []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},
	}
}

// BlobConfigured reports whether storage credentials are present. Without them
// the upload endpoint refuses to store anything.
func (c *Config) BlobConfigured() bool {
	return c.AWSAccessKey != "" && c.AWSSecretKey != "" && c.S3Bucket != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

type UploadOptions struct {
	MaxSizeBytes         int64  `yaml:"max_size_bytes"`
	InlineThresholdBytes int64  `yaml:"inline_threshold_bytes"`
	KeyPrefix            string `yaml:"key_prefix"`
}

type WidgetOptions struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes"`
	AcceptedTypes    []string `yaml:"accepted_types"`
}

type UploadConfig struct {
	Upload UploadOptions `yaml:"upload"`
	Widget WidgetOptions `yaml:"widget"`
}

// LoadUploadConfig reads the upload policy file. A missing file yields the defaults.
func LoadUploadConfig() (*UploadConfig, error) {
	return LoadUploadConfigFrom(getEnv("UPLOAD_CONFIG_PATH", "upload-config.yaml"))
}

func LoadUploadConfigFrom(path string) (*UploadConfig, error) {
	cfg := DefaultUploadConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read upload config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse upload config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (uc *UploadConfig) Validate() error {
	u := uc.Upload
	if u.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload.max_size_bytes must be greater than 0")
	}
	if u.InlineThresholdBytes < 0 {
		return fmt.Errorf("upload.inline_threshold_bytes must not be negative")
	}
	// data URIs are only ever produced for files below the threshold
	if u.InlineThresholdBytes >= u.MaxSizeBytes {
		return fmt.Errorf("upload.inline_threshold_bytes (%d) must be below max_size_bytes (%d)", u.InlineThresholdBytes, u.MaxSizeBytes)
	}
	if uc.Widget.MaxFileSizeBytes < 0 {
		return fmt.Errorf("widget.max_file_size_bytes must not be negative")
	}
	return nil
}

func DefaultUploadConfig() *UploadConfig {
	return &UploadConfig{
		Upload: UploadOptions{
			MaxSizeBytes:         50 * 1024 * 1024,
			InlineThresholdBytes: 1024 * 1024,
			KeyPrefix:            "uploads",
		},
		Widget: WidgetOptions{
			MaxFileSizeBytes: 5 * 1024 * 1024,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
