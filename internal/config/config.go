package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Import   ImportConfig   `yaml:"import"`
	SSE      SSEConfig      `yaml:"sse"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the host, defaulting to localhost.
func (c ServerConfig) GetHost() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_mins"`
}

// ConnMaxLifetime returns the connection max lifetime as a duration.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifeMins) * time.Minute
}

// ImportConfig holds the bulk-import knobs. CSVPath maps to CSV_PATH and
// every other field to an IMPORT_* environment variable; the YAML form
// exists for local dev only.
type ImportConfig struct {
	CSVPath         string `yaml:"csv_path"`
	TotalRows       int64  `yaml:"total_rows"`
	BatchSize       int    `yaml:"batch_size"`
	ProgressEveryMs int    `yaml:"progress_every_ms"`
	HighWaterMark   int    `yaml:"high_water_mark"`
	ResumeOverlap   int64  `yaml:"resume_overlap"`
	RecentLimit     int    `yaml:"recent_limit"`
}

// ProgressInterval returns the progress checkpoint cadence as a duration.
func (c ImportConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressEveryMs) * time.Millisecond
}

// SSEConfig holds the live progress stream settings
type SSEConfig struct {
	HeartbeatMs int `yaml:"heartbeat_ms"`
}

// HeartbeatInterval returns the heartbeat cadence as a duration.
func (c SSEConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// ArchiveConfig holds the optional S3 archival settings. Archival is
// enabled iff S3Bucket is non-empty. AccessKey/SecretKey are optional;
// when empty the default AWS credential chain is used.
type ArchiveConfig struct {
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Enabled reports whether completed source files should be archived.
func (c ArchiveConfig) Enabled() bool {
	return c.S3Bucket != ""
}

// RedisConfig holds the optional Redis settings. When URL is empty the
// service falls back to Postgres advisory locks for the singleton lock.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Load reads configuration from a YAML file and applies defaults for
// anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 30
	}
	if cfg.Import.TotalRows == 0 {
		cfg.Import.TotalRows = 2_000_000
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 1000
	}
	if cfg.Import.ProgressEveryMs == 0 {
		cfg.Import.ProgressEveryMs = 1000
	}
	if cfg.Import.HighWaterMark == 0 {
		cfg.Import.HighWaterMark = 1 << 20
	}
	if cfg.Import.ResumeOverlap == 0 {
		cfg.Import.ResumeOverlap = 1 << 20
	}
	if cfg.Import.RecentLimit == 0 {
		cfg.Import.RecentLimit = 20
	}
	if cfg.SSE.HeartbeatMs == 0 {
		cfg.SSE.HeartbeatMs = 15000
	}
	if cfg.Archive.S3Region == "" {
		cfg.Archive.S3Region = "us-east-1"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS. path
// may be empty, in which case no YAML file is read and the configuration
// is built from defaults plus environment alone.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CSV_PATH"); v != "" {
		cfg.Import.CSVPath = v
	}
	if v := os.Getenv("IMPORT_TOTAL_ROWS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Import.TotalRows = n
		}
	}
	if v := os.Getenv("IMPORT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Import.BatchSize = n
		}
	}
	if v := os.Getenv("IMPORT_PROGRESS_EVERY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Import.ProgressEveryMs = n
		}
	}
	if v := os.Getenv("IMPORT_HIGH_WATER_MARK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Import.HighWaterMark = n
		}
	}
	if v := os.Getenv("IMPORT_RESUME_OVERLAP"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Import.ResumeOverlap = n
		}
	}
	if v := os.Getenv("IMPORT_RECENT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Import.RecentLimit = n
		}
	}
	if v := os.Getenv("SSE_HEARTBEAT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SSE.HeartbeatMs = n
		}
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.S3Region = v
	}
	if v := os.Getenv("ARCHIVE_S3_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_S3_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
