package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "proxy", cfg.CompletionProvider)
	assert.Equal(t, DefaultModelChain, cfg.ModelChain)
	assert.Equal(t, 10, cfg.HistoryWindow)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("COMPLETION_PROVIDER", "anthropic")
	t.Setenv("MODEL_CHAIN", "model-a, model-b ,model-c")
	t.Setenv("HISTORY_WINDOW", "25")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9999", cfg.ServerPort)
	assert.Equal(t, "anthropic", cfg.CompletionProvider)
	assert.Equal(t, []string{"model-a", "model-b", "model-c"}, cfg.ModelChain)
	assert.Equal(t, 25, cfg.HistoryWindow)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "lots")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")
	t.Setenv("MODEL_CHAIN", " , ,")

	cfg := Load()

	assert.Equal(t, 10, cfg.HistoryWindow)
	assert.Equal(t, 30*time.Second, cfg.ServerReadTimeout)
	assert.Equal(t, DefaultModelChain, cfg.ModelChain)
}
