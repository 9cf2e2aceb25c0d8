package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndDerived(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	path := writeConfig(t, `
app:
  env: development
  port: 9090
mongodb:
  database: pix
media:
  driver: memory
  max_upload_mb: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "pix", cfg.Mongo.Database)
	assert.Equal(t, "images", cfg.Mongo.Images)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, "authToken", cfg.JWT.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "imageAlbum", cfg.Media.Folder)
	assert.True(t, cfg.Development())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("APP_PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	path := writeConfig(t, `
app:
  port: 8080
jwt:
  secret: from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.App.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, `
media:
  driver: s3
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
	assert.Contains(t, err.Error(), "aws.bucket")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
