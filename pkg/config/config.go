package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite3"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Blob     BlobConfig
	GitHub   GitHubConfig
	Purge    PurgeConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig selects the document store. "file" keeps JSON files under
// DataDir; sqlite3 uses Path; postgres uses URL.
type DatabaseConfig struct {
	Driver  string
	Path    string
	URL     string
	DataDir string
}

type BlobConfig struct {
	Backend string
	S3      S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GitHubConfig struct {
	Token    string
	CacheTTL time.Duration
}

type PurgeConfig struct {
	Enabled     bool
	Interval    time.Duration
	Concurrency int
}

type AuthConfig struct {
	APIToken string
}

type LogConfig struct {
	Level  string
	Format string
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// FromEnv builds a Config from the current environment and validates it
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:  strings.ToLower(getEnv("DB_DRIVER", BackendFile)),
			Path:    getEnv("DB_PATH", "./storyhub.db"),
			URL:     getEnv("DATABASE_URL", ""),
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getEnv("BLOB_BACKEND", BackendFile)),
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				Region:    getEnv("S3_REGION", "us-east-1"),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Bucket:    getEnv("S3_BUCKET", "storyhub"),
				UseSSL:    getEnvAsBool("S3_USE_SSL", true),
			},
		},
		GitHub: GitHubConfig{
			Token:    getEnv("GITHUB_TOKEN", ""),
			CacheTTL: time.Duration(getEnvAsInt("GITHUB_CACHE_TTL", 3600)) * time.Second,
		},
		Purge: PurgeConfig{
			Enabled:     getEnvAsBool("PURGE_ENABLED", true),
			Interval:    time.Duration(getEnvAsInt("PURGE_INTERVAL_MINUTES", 60)) * time.Minute,
			Concurrency: getEnvAsInt("PURGE_CONCURRENCY", 8),
		},
		Auth: AuthConfig{
			APIToken: getEnv("API_TOKEN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend selection and the settings each backend needs
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Blob.Backend {
	case BackendFile:
	case BackendS3:
		if c.Blob.S3.Endpoint == "" || c.Blob.S3.AccessKey == "" || c.Blob.S3.SecretKey == "" {
			return fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY are required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.Blob.Backend)
	}

	if c.Purge.Interval <= 0 {
		return fmt.Errorf("PURGE_INTERVAL_MINUTES must be positive")
	}
	if c.Purge.Concurrency < 1 {
		return fmt.Errorf("PURGE_CONCURRENCY must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
