package schemas

import "context"

// GenerationOptions controls the text generation process of the LLM.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, asks the model to output valid JSON.
	MaxTokens       int     `json:"max_tokens,omitempty"`
}

// GenerationRequest encapsulates one complete request to the LLM: the system
// instruction block, the assembled user transcript, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient abstracts a large language model backend. Implementations own
// their transport concerns (timeouts, transport-level retries); callers are
// expected to issue at most one Generate per turn.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}
