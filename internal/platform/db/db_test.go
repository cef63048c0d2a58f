package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
mode: dev
listen: ":9090"
jwt_secret: "file-secret"
database:
  host: db.internal
  port: 3306
  user: crims
  password: filepass
  dbname: crims
redis:
  addr: "127.0.0.1:6379"
kafka:
  brokers: ["127.0.0.1:9092"]
  topic: crims.activity
credit_policy:
  lost: none
  major_damage: full
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "crims.activity", cfg.Kafka.Topic)
	assert.Equal(t, "none", cfg.CreditPolicy["lost"])
	assert.Equal(t, "full", cfg.CreditPolicy["major_damage"])
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
mode: release
database:
  host: localhost
  port: 3306
  user: u
  dbname: d
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CRIMS_DB_PASSWORD", "env-pass")
	t.Setenv("CRIMS_JWT_SECRET", "env-secret")
	t.Setenv("CRIMS_REDIS_ADDR", "redis.internal:6379")

	path := writeConfig(t, `
mode: dev
jwt_secret: "file-secret"
database:
  host: localhost
  port: 3306
  user: u
  password: filepass
  dbname: d
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-pass", cfg.DB.Password)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeConfig(t, "mode: [unterminated")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
