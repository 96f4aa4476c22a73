package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfg := LoadConfig()

	assert.Equal(t, EnvDevelopment, cfg.AppEnv)
	assert.Equal(t, int64(50*1024*1024), cfg.Ingest.MaxUploadBytes)
	assert.Equal(t, 120*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.Oracle.GeminiModel)
	assert.Equal(t, "documents", cfg.Search.Index)
	assert.Equal(t, 365, cfg.Audit.RetentionDays)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("ORACLE_TIMEOUT", "not-a-duration")
	cfg := LoadConfig()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(1024), cfg.Ingest.MaxUploadBytes)
	assert.Equal(t, 120*time.Second, cfg.Oracle.Timeout)
}

func TestValidateRejectsMissingSecrets(t *testing.T) {
	cfg := LoadConfig()
	cfg.Oracle.GeminiAPIKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	cfg.Oracle.GeminiAPIKey = "k"
	cfg.AppEnv = EnvProduction
	cfg.Auth.SecretKey = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}
