package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PUBLIC_URL", "https://lms.example/")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://lms.example", cfg.PublicURL)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 30*time.Minute, cfg.GradeSyncInterval)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestFromEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("GRADE_SYNC_INTERVAL", "soon")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.Level())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warning"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "chatty"}.Level())
}

func TestEnvProviderReadsAtCallTime(t *testing.T) {
	p := EnvProvider{}
	t.Setenv("LTIAAS_URL", "https://one.example")
	s, err := p.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://one.example", s.LTIAASURL)
	assert.True(t, s.AuthEnabled)

	t.Setenv("LTIAAS_URL", "https://two.example")
	t.Setenv("ENROL_LTIAAS_ENABLED", "false")
	s, err = p.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://two.example", s.LTIAASURL)
	assert.False(t, s.EnrolEnabled)
}
