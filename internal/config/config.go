package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Upload    UploadConfig    `yaml:"upload"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	MaxRequestTimeout   string   `yaml:"max_request_timeout"` // upper bound for X-Request-Timeout
	MaxBodyMB           int      `yaml:"max_body_mb"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// MaxTimeout parses MaxRequestTimeout, falling back to five minutes.
func (c ServerConfig) MaxTimeout() time.Duration {
	d, err := time.ParseDuration(c.MaxRequestTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
	MigrationsDir   string `yaml:"migrations_dir"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis; sessions
// then fall back to the configured alternative and locks to PG advisory locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig holds log level and optional rotated file output
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	RedactPII  *bool  `yaml:"redact_pii"`
}

// UploadConfig holds Batch Loader settings
type UploadConfig struct {
	SessionBackend    string         `yaml:"session_backend"` // "redis", "dynamodb" or "memory"
	SessionTTLMinutes int            `yaml:"session_ttl_minutes"`
	BatchSizes        map[string]int `yaml:"batch_sizes"`
}

// SessionTTL returns the upload session lifetime
func (c UploadConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// BatchSize returns the configured batch size for a dataset, or def.
func (c UploadConfig) BatchSize(dataset string, def int) int {
	if n, ok := c.BatchSizes[dataset]; ok && n > 0 {
		return n
	}
	return def
}

// ReconcileConfig holds Reconciliation Engine settings
type ReconcileConfig struct {
	PageSize          int     `yaml:"page_size"`
	DisplayLimit      int     `yaml:"display_limit"`
	WeightThreshold   float64 `yaml:"weight_threshold"`
	BaseWeight        int     `yaml:"base_weight"`
	ChargePerKg       int     `yaml:"charge_per_kg"`
	DistanceThreshold float64 `yaml:"distance_threshold"`
	UseTransaction    bool    `yaml:"use_transaction"`
	LockTTLSeconds    int     `yaml:"lock_ttl_seconds"`
	IntervalMinutes   int     `yaml:"interval_minutes"` // 0 disables the worker schedule
}

// LockTTL returns the reconcile lock TTL as a duration
func (c ReconcileConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Interval returns the worker schedule as a duration
func (c ReconcileConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// StorageConfig holds report archive and session table settings
type StorageConfig struct {
	Type               string `yaml:"type"` // "local" or "s3"
	LocalPath          string `yaml:"local_path"`
	S3Bucket           string `yaml:"s3_bucket"`
	S3Prefix           string `yaml:"s3_prefix"`
	DynamoDBTable      string `yaml:"dynamodb_table"`
	AWSRegion          string `yaml:"aws_region"`
	AWSProfile         string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 60
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 300
	}
	if cfg.Server.MaxBodyMB == 0 {
		cfg.Server.MaxBodyMB = 50
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "migrations"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.Upload.SessionBackend == "" {
		cfg.Upload.SessionBackend = "redis"
	}
	if cfg.Upload.SessionTTLMinutes == 0 {
		cfg.Upload.SessionTTLMinutes = 60
	}
	if cfg.Reconcile.PageSize == 0 {
		cfg.Reconcile.PageSize = 500
	}
	if cfg.Reconcile.DisplayLimit == 0 {
		cfg.Reconcile.DisplayLimit = 50
	}
	if cfg.Reconcile.WeightThreshold == 0 {
		cfg.Reconcile.WeightThreshold = 0.30
	}
	if cfg.Reconcile.BaseWeight == 0 {
		cfg.Reconcile.BaseWeight = 10
	}
	if cfg.Reconcile.ChargePerKg == 0 {
		cfg.Reconcile.ChargePerKg = 400
	}
	if cfg.Reconcile.DistanceThreshold == 0 {
		cfg.Reconcile.DistanceThreshold = 0.30
	}
	if cfg.Reconcile.LockTTLSeconds == 0 {
		cfg.Reconcile.LockTTLSeconds = 600
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/reports"
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "reports/"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "ap-southeast-1"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "s3"
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("UPLOAD_SESSION_BACKEND"); v != "" {
		cfg.Upload.SessionBackend = v
	}

	return cfg, nil
}
