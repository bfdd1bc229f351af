package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost:5432/customers?sslmode=disable"
  max_open_conns: 40

import:
  csv_path: "/data/customers-2m.csv"
  total_rows: 5000000
  batch_size: 2500
  progress_every_ms: 500

sse:
  heartbeat_ms: 5000

archive:
  s3_bucket: "import-archive"
  s3_region: "us-west-2"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "postgres://localhost:5432/customers?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 40, cfg.Database.MaxOpenConns)

	assert.Equal(t, "/data/customers-2m.csv", cfg.Import.CSVPath)
	assert.Equal(t, int64(5000000), cfg.Import.TotalRows)
	assert.Equal(t, 2500, cfg.Import.BatchSize)
	assert.Equal(t, 500, cfg.Import.ProgressEveryMs)

	assert.Equal(t, 5000, cfg.SSE.HeartbeatMs)

	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "import-archive", cfg.Archive.S3Bucket)
	assert.Equal(t, "us-west-2", cfg.Archive.S3Region)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  url: "postgres://localhost/customers"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, int64(2_000_000), cfg.Import.TotalRows)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, 1000, cfg.Import.ProgressEveryMs)
	assert.Equal(t, 1<<20, cfg.Import.HighWaterMark)
	assert.Equal(t, int64(1<<20), cfg.Import.ResumeOverlap)
	assert.Equal(t, 20, cfg.Import.RecentLimit)
	assert.Equal(t, 15000, cfg.SSE.HeartbeatMs)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, "us-east-1", cfg.Archive.S3Region)
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  url: "postgres://file-host/customers"
import:
  batch_size: 500
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("DATABASE_URL", "postgres://env-host/customers")
	t.Setenv("IMPORT_BATCH_SIZE", "4000")
	t.Setenv("CSV_PATH", "/mnt/drop/customers.csv")
	t.Setenv("SSE_HEARTBEAT_MS", "30000")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "postgres://env-host/customers", cfg.Database.URL)
	assert.Equal(t, 4000, cfg.Import.BatchSize)
	assert.Equal(t, "/mnt/drop/customers.csv", cfg.Import.CSVPath)
	assert.Equal(t, 30000, cfg.SSE.HeartbeatMs)
}

func TestLoadFromEnvWithoutFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-only/customers")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-only/customers", cfg.Database.URL)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestValidateRequiresDatabaseURL(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	assert.Error(t, cfg.Validate())
}

func TestProgressInterval(t *testing.T) {
	cfg := ImportConfig{ProgressEveryMs: 500}
	assert.Equal(t, 500*1000000, int(cfg.ProgressInterval().Nanoseconds()))
}

func TestHeartbeatInterval(t *testing.T) {
	cfg := SSEConfig{HeartbeatMs: 15000}
	assert.Equal(t, 15, int(cfg.HeartbeatInterval().Seconds()))
}
