package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "pagepilot", cfg.Logger.ServiceName)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 2*time.Minute, cfg.LLM.APITimeout)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("defaults validate", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
	})

	t.Run("api key from environment", func(t *testing.T) {
		t.Setenv("PAGEPILOT_LLM_API_KEY", "test-key")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "test-key", cfg.LLM.APIKey)
	})

	t.Run("overrides win over defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("server.addr", "127.0.0.1:9999")
		v.Set("llm.model", "gemini-2.5-pro")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
		assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"missing provider", func(c *Config) { c.LLM.Provider = "" }, "llm.provider"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"zero api timeout", func(c *Config) { c.LLM.APITimeout = 0 }, "api_timeout"},
		{"temperature out of range", func(c *Config) { c.LLM.Temperature = 2.5 }, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
