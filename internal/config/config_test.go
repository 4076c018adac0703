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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "audit_log.json", cfg.Audit.Path)
	assert.False(t, cfg.Oracle.Enabled)
	assert.Equal(t, "us-central1", cfg.Oracle.Region)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.True(t, cfg.Extraction.Enabled)
	assert.Equal(t, "threads", cfg.Firestore.Collection)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Process.Concurrency)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
projectId: from-file
audit:
  path: /var/lib/docrouter/audit.json
oracle:
  enabled: true
  model: gemini-2.0-flash
  timeout: 5s
kafka:
  brokers: [a:9092]
process:
  concurrency: 8
`), 0o644))

	t.Setenv("PROJECT_ID", "from-env")
	t.Setenv("DOCROUTER_KAFKA_BROKERS", "b:9092,c:9092")
	t.Setenv("DOCROUTER_ORACLE_TIMEOUT", "not-a-duration")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ProjectID)
	assert.Equal(t, "/var/lib/docrouter/audit.json", cfg.Audit.Path)
	assert.True(t, cfg.Oracle.Enabled)
	assert.Equal(t, "gemini-2.0-flash", cfg.Oracle.Model)
	assert.Equal(t, 5*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, []string{"b:9092", "c:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Process.Concurrency)
	assert.Equal(t, "us-central1", cfg.Oracle.Region)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_OracleNeedsProject(t *testing.T) {
	t.Setenv("DOCROUTER_ORACLE_ENABLED", "true")
	t.Setenv("PROJECT_ID", "")

	_, err := Load("")
	assert.ErrorContains(t, err, "PROJECT_ID")
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))
	t.Setenv(ConfigPathEnv, path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
