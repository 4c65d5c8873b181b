package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clausewise.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		PathEnv, "PORT", "LLM_PROVIDER", "GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_MODEL",
		"LLM_TIMEOUT", "LLM_TEMPERATURE", "GOOGLE_PLACES_API_KEY", "GOOGLE_GEOLOCATION_API_KEY", "GOOGLE_MAPS_BASE_URL",
		"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL",
		"STORAGE_TYPE", "STORAGE_LOCAL_PATH", "AWS_S3_BUCKET", "AWS_REGION", "AWS_S3_ENDPOINT",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "LOG_LEVEL", "LOG_DEVELOPMENT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 10*time.Second, cfg.GoogleTimeout())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 60*time.Second, cfg.MaxPositionAge())
	assert.Equal(t, storage.TypeLocal, cfg.Storage.Type)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9000"
llm:
  provider: offline
  timeout: 5s
google:
  radius_meters: 2500
redis:
  addr: localhost:6380
  session_ttl: 1h
storage:
  type: s3
  s3_bucket: contracts
location:
  max_position_age: 30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, ProviderOffline, cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 2500, cfg.Google.RadiusMeters)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, storage.TypeS3, cfg.Storage.Type)
	assert.Equal(t, "contracts", cfg.Storage.S3Bucket)
	assert.Equal(t, 30*time.Second, cfg.MaxPositionAge())
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model, "unset fields keep defaults")
}

func TestLoadUsesPathEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: \"7000\"\n")
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm:\n  provider: offline\n")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("GOOGLE_PLACES_API_KEY", "places-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/clausewise")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("AWS_S3_BUCKET", "bucket")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider, "environment wins over the file")
	key, err := cfg.GeminiAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "gem-key", key)
	assert.Equal(t, "places-key", cfg.GeolocationKey(), "geolocation falls back to the places key")
	assert.Equal(t, "postgres://localhost/clausewise", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
	assert.Equal(t, storage.TypeS3, cfg.Storage.Type)
	assert.Equal(t, "bucket", cfg.Storage.S3Bucket)
	assert.True(t, cfg.Log.Development)

	t.Setenv("GOOGLE_GEOLOCATION_API_KEY", "geo-key")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "geo-key", cfg.GeolocationKey())
}

func TestMissingGeminiKey(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	_, err = cfg.GeminiAPIKey()
	assert.ErrorIs(t, err, apperr.ErrConfigurationMissing)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"provider": "llm:\n  provider: openai\n",
		"duration": "llm:\n  timeout: soon\n",
		"yaml":     "server: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(LogConfig{Level: "warn", Development: true})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
