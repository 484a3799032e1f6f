// Package config provides configuration for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Repository and storage drivers
const (
	RepositoryMySQL  = "mysql"
	RepositoryMemory = "memory"

	StorageLocal = "local"
	StorageS3    = "s3"
	StorageMinio = "minio"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Logging    LoggingConfig
	CORS       CORSConfig
	Repository RepositoryConfig
	Storage    StorageConfig
	Transcode  TranscodeConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port          int
	BaseURL       string
	MaxUploadSize int64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// RepositoryConfig selects the submission store
type RepositoryConfig struct {
	Driver string
}

// StorageConfig selects and configures the media store
type StorageConfig struct {
	Driver        string
	MediaBasePath string
	MediaBaseURL  string
	S3            S3Config
	Minio         MinioConfig
}

// S3Config holds settings of an S3 compatible bucket
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
	UsePathStyle    bool
}

// MinioConfig holds MinIO settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

// TranscodeConfig holds settings of the video pipeline
type TranscodeConfig struct {
	FFmpegPath      string
	WatermarkPath   string
	Workers         int
	Preset          string
	CRF             int
	Retry           bool
	IngestTimeout   time.Duration
	ThumbnailOffset time.Duration
	ThumbnailWidth  int
	ThumbnailHeight int
	WorkspaceDir    string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	var err error

	// Server configuration
	if cfg.Server.Port, err = intEnv("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	cfg.Server.BaseURL = os.Getenv("BASE_URL")
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	maxUpload, err := intEnv("MAX_UPLOAD_SIZE", 2048)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	cfg.Server.MaxUploadSize = int64(maxUpload) * 1024 * 1024

	// Logging configuration
	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Repository configuration
	cfg.Repository.Driver = strings.ToLower(stringEnv("REPOSITORY_DRIVER", RepositoryMySQL))
	switch cfg.Repository.Driver {
	case RepositoryMySQL:
		if err := loadDatabase(&cfg.Database); err != nil {
			return nil, err
		}
	case RepositoryMemory:
	default:
		return nil, fmt.Errorf("invalid REPOSITORY_DRIVER: %q", cfg.Repository.Driver)
	}

	// Storage configuration
	if err := loadStorage(&cfg.Storage, cfg.Server.BaseURL); err != nil {
		return nil, err
	}

	// Transcode configuration
	if err := loadTranscode(&cfg.Transcode); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDatabase(db *DatabaseConfig) error {
	var err error
	if db.Host, err = requiredEnv("DB_HOST"); err != nil {
		return err
	}
	portStr, err := requiredEnv("DB_PORT")
	if err != nil {
		return err
	}
	if db.Port, err = strconv.Atoi(portStr); err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if db.User, err = requiredEnv("DB_USER"); err != nil {
		return err
	}
	if db.Password, err = requiredEnv("DB_PASSWORD"); err != nil {
		return err
	}
	if db.DBName, err = requiredEnv("DB_NAME"); err != nil {
		return err
	}
	return nil
}

func loadStorage(s *StorageConfig, baseURL string) error {
	var err error
	s.Driver = strings.ToLower(stringEnv("STORAGE_DRIVER", StorageLocal))

	switch s.Driver {
	case StorageLocal:
		if s.MediaBasePath, err = requiredEnv("MEDIA_BASE_PATH"); err != nil {
			return err
		}
		s.MediaBaseURL = stringEnv("MEDIA_BASE_URL", strings.TrimRight(baseURL, "/")+"/api/v1")
	case StorageS3:
		s.S3.Endpoint = os.Getenv("S3_ENDPOINT")
		s.S3.Region = stringEnv("S3_REGION", "auto")
		if s.S3.AccessKeyID, err = requiredEnv("S3_ACCESS_KEY_ID"); err != nil {
			return err
		}
		if s.S3.SecretAccessKey, err = requiredEnv("S3_SECRET_ACCESS_KEY"); err != nil {
			return err
		}
		if s.S3.Bucket, err = requiredEnv("S3_BUCKET"); err != nil {
			return err
		}
		if s.S3.PublicURL, err = requiredEnv("S3_PUBLIC_URL"); err != nil {
			return err
		}
		if s.S3.UsePathStyle, err = boolEnv("S3_USE_PATH_STYLE", false); err != nil {
			return err
		}
	case StorageMinio:
		if s.Minio.Endpoint, err = requiredEnv("MINIO_ENDPOINT"); err != nil {
			return err
		}
		if s.Minio.AccessKey, err = requiredEnv("MINIO_ACCESS_KEY"); err != nil {
			return err
		}
		if s.Minio.SecretKey, err = requiredEnv("MINIO_SECRET_KEY"); err != nil {
			return err
		}
		s.Minio.Bucket = stringEnv("MINIO_BUCKET", "previewvault")
		if s.Minio.PublicURL, err = requiredEnv("MINIO_PUBLIC_URL"); err != nil {
			return err
		}
		if s.Minio.UseSSL, err = boolEnv("MINIO_USE_SSL", false); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: %q", s.Driver)
	}

	return nil
}

func loadTranscode(t *TranscodeConfig) error {
	var err error
	t.FFmpegPath = stringEnv("FFMPEG_PATH", "ffmpeg")
	if t.WatermarkPath, err = requiredEnv("WATERMARK_PATH"); err != nil {
		return err
	}
	if t.Workers, err = intEnv("TRANSCODE_WORKERS", 2); err != nil {
		return err
	}
	if t.Workers < 1 {
		return fmt.Errorf("TRANSCODE_WORKERS must be at least 1")
	}
	t.Preset = stringEnv("TRANSCODE_PRESET", "fast")
	if t.CRF, err = intEnv("TRANSCODE_CRF", 23); err != nil {
		return err
	}
	if t.CRF < 0 || t.CRF > 51 {
		return fmt.Errorf("TRANSCODE_CRF must be between 0 and 51")
	}
	if t.Retry, err = boolEnv("TRANSCODE_RETRY", false); err != nil {
		return err
	}
	if t.IngestTimeout, err = durationEnv("INGEST_TIMEOUT", 5*time.Minute); err != nil {
		return err
	}
	if t.ThumbnailOffset, err = durationEnv("THUMBNAIL_OFFSET", 5*time.Second); err != nil {
		return err
	}
	if t.ThumbnailWidth, t.ThumbnailHeight, err = parseSize(stringEnv("THUMBNAIL_SIZE", "1280x720")); err != nil {
		return err
	}
	t.WorkspaceDir = os.Getenv("WORKSPACE_DIR")
	return nil
}

// DSN returns the database connection string.
// clientFoundRows makes an UPDATE that leaves a row unchanged still report it as affected.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func requiredEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// parseSize parses "WIDTHxHEIGHT"
func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid THUMBNAIL_SIZE: %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid THUMBNAIL_SIZE: %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid THUMBNAIL_SIZE: %q", s)
	}
	return width, height, nil
}

// parseOrigins splits a comma separated origin list; an empty list allows every origin
func parseOrigins(value string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
