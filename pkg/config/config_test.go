package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ModelConfig(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "test-key")
	t.Setenv("MODEL_BASE_URL", "http://model.local/v1")
	t.Setenv("MODEL_TIMEOUT", "5s")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Model.APIKey)
	assert.Equal(t, "http://model.local/v1", cfg.Model.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("MODEL_BASE_URL")
	os.Unsetenv("GENERATION_BULK_WORKERS")
	os.Unsetenv("REDIS_ENABLED")
	os.Unsetenv("REDIS_HOST")
	os.Unsetenv("REDIS_PORT")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Model.BaseURL)
	assert.Equal(t, 4, cfg.Generation.BulkWorkers)
	assert.Equal(t, 30, cfg.Generation.RecentContactDays)
	assert.Equal(t, 7, cfg.Generation.MinSignalRelevance)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://crm.example.com, https://admin.example.com,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://crm.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_RejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsSampleRatioOutOfRange(t *testing.T) {
	t.Setenv("OTEL_TRACE_SAMPLE_RATIO", "1.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveWorkers(t *testing.T) {
	t.Setenv("GENERATION_BULK_WORKERS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadComplianceRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "banned_phrases:\n  - garantizado\ncomparative_phrases:\n  - outperforms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadComplianceRules(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"garantizado"}, rules.BannedPhrases)
	assert.Equal(t, []string{"outperforms"}, rules.ComparativePhrases)
	assert.Empty(t, rules.PromisePhrases)
}

func TestLoadComplianceRules_EmptyPath(t *testing.T) {
	rules, err := LoadComplianceRules("")
	require.NoError(t, err)
	assert.Empty(t, rules.BannedPhrases)
}
