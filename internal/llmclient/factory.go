package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/config"
)

// NewClient creates an LLMClient for the configured provider.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q (supported: %s)", cfg.Provider, config.ProviderGemini)
	}
}
