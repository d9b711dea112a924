package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by the factory.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
)

// NewClient constructs the client for the named provider.
func NewClient(ctx context.Context, name string, opts Options, logger *zap.Logger) (Client, error) {
	switch name {
	case ProviderAnthropic, "":
		return NewAnthropicClient(opts, logger)
	case ProviderGemini:
		return NewGeminiClient(ctx, opts, logger)
	case ProviderOpenAI:
		return NewOpenAIClient(opts, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
