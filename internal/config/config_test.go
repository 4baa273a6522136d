package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioneuro/backend/internal/crypto"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("DECODER_DELAY", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 1800*time.Millisecond, cfg.Decoder.Delay)
	assert.Equal(t, "523331155895", cfg.Contact.WhatsAppNumber)
	assert.Equal(t, 2, cfg.LLM.RetryAttempts)

	key, err := cfg.LLM.ResolveAPIKey()
	require.NoError(t, err)
	assert.Empty(t, key, "missing credential is demo mode, not a failure")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_TIMEOUT", "12s")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 12*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 60, cfg.App.RateLimitPerMinute)
}

func TestLegacyAPIKeyVariable(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")

	cfg := Load()
	key, err := cfg.LLM.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", key)
}

func TestResolveSealedAPIKey(t *testing.T) {
	master := "0123456789abcdef0123456789abcdef"
	sealed, err := crypto.Encrypt(master, "sk-test")
	require.NoError(t, err)

	cfg := LLMConfig{APIKey: "ignored", SealedAPIKey: sealed, MasterKey: master}
	key, err := cfg.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	cfg.MasterKey = ""
	_, err = cfg.ResolveAPIKey()
	assert.Error(t, err)
}
