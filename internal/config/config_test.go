package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VISIT_STORE_DRIVER", "memory")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 20, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 10, cfg.Postgres.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.ConnMaxLifetime)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "auto", cfg.S3.Region)
	assert.Equal(t, 15*time.Minute, cfg.Media.PresignTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("VISIT_STORE_DRIVER", "")
	t.Setenv("VISIT_POSTGRES_DSN", "")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load("")
	assert.ErrorContains(t, err, "postgres.dsn")
}

func TestLoad_LegacyDSN(t *testing.T) {
	t.Setenv("VISIT_POSTGRES_DSN", "")
	t.Setenv("POSTGRES_DSN", "postgres://visit@localhost/visit")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://visit@localhost/visit", cfg.Postgres.DSN)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
http:
  addr: ":9000"
store:
  driver: memory
s3:
  bucket: family-trip
  endpoint: http://localhost:9001
media:
  presign_ttl: 2m
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("VISIT_S3_BUCKET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.S3.Bucket)
	assert.Equal(t, "http://localhost:9001", cfg.S3.Endpoint)
	assert.Equal(t, 2*time.Minute, cfg.Media.PresignTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{
		HTTP:  HTTPConfig{ShutdownTimeout: time.Second},
		Store: StoreConfig{Driver: "sqlite"},
	}
	assert.ErrorContains(t, cfg.Validate(), "sqlite")
}
