// Package config loads runtime settings from an optional YAML/TOML file, a .env
// file and the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Import   ImportConfig   `yaml:"import" toml:"import"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" toml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" toml:"driver"` // postgres or sqlite
	URL      string `yaml:"url" toml:"url"`
	Path     string `yaml:"path" toml:"path"`
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

type LogConfig struct {
	Level       string `yaml:"level" toml:"level"`
	Development bool   `yaml:"development" toml:"development"`
}

type StorageConfig struct {
	DataRoot        string     `yaml:"data_root" toml:"data_root"`
	CleanupSchedule string     `yaml:"cleanup_schedule" toml:"cleanup_schedule"`
	Blob            BlobConfig `yaml:"blob" toml:"blob"`
}

type BlobConfig struct {
	Driver      string `yaml:"driver" toml:"driver"` // fs or s3
	S3Bucket    string `yaml:"s3_bucket" toml:"s3_bucket"`
	S3Region    string `yaml:"s3_region" toml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint" toml:"s3_endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style" toml:"s3_path_style"`
}

type ImportConfig struct {
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "4000",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     "./ptcg.db",
			LogLevel: "warn",
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			DataRoot:        "./data",
			CleanupSchedule: "@daily",
			Blob:            BlobConfig{Driver: "fs", S3Region: "us-east-1"},
		},
		Import: ImportConfig{MaxAttempts: 3},
	}
}

// Load builds the configuration. path may be empty, in which case CONFIG_FILE is
// consulted; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.LogLevel, "DB_LOG_LEVEL")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setBool(&cfg.Log.Development, "LOG_DEVELOPMENT")

	setString(&cfg.Storage.DataRoot, "DATA_ROOT")
	if v, ok := os.LookupEnv("STORAGE_CLEANUP_SCHEDULE"); ok {
		cfg.Storage.CleanupSchedule = strings.TrimSpace(v)
	}
	setString(&cfg.Storage.Blob.Driver, "BLOB_DRIVER")
	setString(&cfg.Storage.Blob.S3Bucket, "BLOB_S3_BUCKET")
	setString(&cfg.Storage.Blob.S3Region, "BLOB_S3_REGION")
	setString(&cfg.Storage.Blob.S3Endpoint, "BLOB_S3_ENDPOINT")
	setBool(&cfg.Storage.Blob.S3PathStyle, "BLOB_S3_PATH_STYLE")

	if v := os.Getenv("IMPORT_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Import.MaxAttempts = n
		}
	}
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Storage.Blob.Driver {
	case "fs":
	case "s3":
		if c.Storage.Blob.S3Bucket == "" {
			return errors.New("BLOB_S3_BUCKET is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Storage.Blob.Driver)
	}

	if c.Import.MaxAttempts < 1 {
		c.Import.MaxAttempts = 1
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
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
