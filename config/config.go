// Package config loads runtime settings from a YAML file and the environment.
// Environment variables win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"casedb-backend/extract"
	"casedb-backend/storage"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the optional YAML config file.
const EnvConfigFile = "CASEDB_CONFIG"

// Dataset backends.
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds every runtime setting.
type Config struct {
	StorageType      string        `yaml:"storage_type"`
	StorageLocalPath string        `yaml:"storage_local_path"`
	S3Bucket         string        `yaml:"s3_bucket"`
	S3Region         string        `yaml:"s3_region"`
	S3Prefix         string        `yaml:"s3_prefix"`
	AWSAccessKey     string        `yaml:"-"`
	AWSSecretKey     string        `yaml:"-"`
	DatasetBackend   string        `yaml:"dataset_backend"`
	DatabaseURL      string        `yaml:"database_url"`
	SQLitePath       string        `yaml:"sqlite_path"`
	StatutesPath     string        `yaml:"statutes_path"`
	Concurrency      int           `yaml:"concurrency"`
	DocumentTimeout  time.Duration `yaml:"document_timeout"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MaxCandidates    int           `yaml:"max_statute_candidates"`
	CriminalOnly     bool          `yaml:"criminal_only"`
	FetchMissing     bool          `yaml:"fetch_missing"`
	Port             string        `yaml:"port"`
	LogLevel         string        `yaml:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		StorageType:      string(storage.StorageTypeLocal),
		StorageLocalPath: "./storage",
		S3Region:         "us-east-1",
		DatasetBackend:   BackendCSV,
		SQLitePath:       "./storage/casedb.sqlite",
		StatutesPath:     "data/statutes.csv",
		Concurrency:      4,
		DocumentTimeout:  30 * time.Second,
		FetchTimeout:     20 * time.Second,
		MaxCandidates:    extract.DefaultMaxCandidates,
		CriminalOnly:     true,
		Port:             "8080",
		LogLevel:         "info",
	}
}

// Load reads the YAML file named by CASEDB_CONFIG (if any), applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.StorageType, "STORAGE_TYPE")
	setString(&c.StorageLocalPath, "STORAGE_LOCAL_PATH")
	setString(&c.S3Bucket, "AWS_S3_BUCKET")
	setString(&c.S3Region, "AWS_REGION")
	setString(&c.S3Prefix, "AWS_S3_PREFIX")
	setString(&c.AWSAccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.AWSSecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.DatasetBackend, "DATASET_BACKEND")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.StatutesPath, "STATUTES_PATH")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")

	if err := setInt(&c.Concurrency, "EXTRACT_CONCURRENCY"); err != nil {
		return err
	}
	if err := setInt(&c.MaxCandidates, "MAX_STATUTE_CANDIDATES"); err != nil {
		return err
	}
	if err := setDuration(&c.DocumentTimeout, "DOCUMENT_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.FetchTimeout, "FETCH_TIMEOUT"); err != nil {
		return err
	}
	if err := setBool(&c.CriminalOnly, "CRIMINAL_ONLY"); err != nil {
		return err
	}
	return setBool(&c.FetchMissing, "FETCH_MISSING")
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.DatasetBackend {
	case BackendCSV, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown dataset backend: %q", c.DatasetBackend)
	}
	switch storage.StorageType(c.StorageType) {
	case storage.StorageTypeLocal:
	case storage.StorageTypeS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for S3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %q", c.StorageType)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("max statute candidates must not be negative, got %d", c.MaxCandidates)
	}
	return nil
}

// StorageConfig returns the blob storage settings.
func (c *Config) StorageConfig() storage.StorageConfig {
	return storage.StorageConfig{
		Type:         storage.StorageType(c.StorageType),
		LocalPath:    c.StorageLocalPath,
		S3Bucket:     c.S3Bucket,
		S3Region:     c.S3Region,
		S3Prefix:     c.S3Prefix,
		AWSAccessKey: c.AWSAccessKey,
		AWSSecretKey: c.AWSSecretKey,
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
