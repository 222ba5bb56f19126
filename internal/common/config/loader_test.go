package config

import (
	"os"
	"path/filepath"
	"testing"

	"medqa-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "http://localhost:8000///"
  api_key: "  secret  "
workers:
  medqa-compare-answers:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, 120000, cfg.API.Timeout)
	assert.Equal(t, "zh-TW", cfg.App.Locale)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)

	worker := GetWorkerConfig(cfg, "medqa-compare-answers")
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 125000, worker.Timeout)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("MEDQA_API_BASE_URL", "https://kg.example.org/")
	t.Setenv("MEDQA_API_KEY", "from-env")
	path := writeConfig(t, "app:\n  locale: en\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://kg.example.org", cfg.API.BaseURL)
	assert.Equal(t, "from-env", cfg.API.APIKey)
	assert.Equal(t, "en", cfg.App.Locale)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing base url", "app:\n  locale: en\n", "api.base_url is required"},
		{"relative base url", "api:\n  base_url: /api\n", "absolute http(s) URL"},
		{"unknown locale", "app:\n  locale: fr\napi:\n  base_url: http://x\n", "app.locale"},
		{"camunda without broker", "api:\n  base_url: http://x\ncamunda:\n  enabled: true\n", "broker_address"},
		{"cache without redis", "api:\n  base_url: http://x\ncache:\n  enabled: true\n", "redis.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MEDQA_API_BASE_URL", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeConfigInvalid, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://h:1", NormalizeBaseURL(" http://h:1/ "))
	assert.Equal(t, "http://h:1/api", NormalizeBaseURL("http://h:1/api//"))
	assert.Equal(t, "", NormalizeBaseURL(""))
}
