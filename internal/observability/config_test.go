package observability

import (
	"testing"

	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{Environment: "development", SiteURL: "http://localhost:8080"})

	assert.Equal(t, "humesociety", cfg.ServiceName)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, "localhost", cfg.SiteHost)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigPrefixedVariableWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HUME_LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_SAMPLING_RATIO", "4")

	cfg := LoadConfig(config.Config{AppName: "hume-site", Environment: "production", SiteURL: "https://humesociety.org"})

	assert.Equal(t, "hume-site", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, "humesociety.org", cfg.SiteHost)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigUnknownFormatFallsBackToJSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	cfg := LoadConfig(config.Config{Environment: "production"})
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}
