// Package llm provides the completion collaborator used by the agent.
//
// The contract is deliberately narrow: one prompt string in, one text
// completion out. Provider-specific chat surfaces stay behind it.
package llm

import (
	"context"
	"encoding/json"
)

// Completion is the result of a completion request.
type Completion struct {
	// Text is the canonical completion text.
	Text string

	// Model is the model that actually served the request.
	Model string

	// Raw is the opaque provider payload, kept for diagnostics.
	Raw json.RawMessage

	LatencyMs int64
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends a prompt to the named model and returns the
	// completion. Failures are either transport errors or a
	// *ProviderError carrying the provider's error details.
	Complete(ctx context.Context, prompt, model string) (*Completion, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of completion provider.
type Provider string

const (
	ProviderProxy     Provider = "proxy"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config selects and configures a completion backend.
type Config struct {
	Provider        Provider
	ProxyURL        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// NewClient creates a completion client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.AnthropicAPIKey)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey)
	default:
		return NewProxyClient(cfg.ProxyURL), nil
	}
}
