package models

import (
	"context"
	"fmt"
	"strings"
)

// NewProvider returns a concrete Model for a provider name.
func NewProvider(ctx context.Context, provider string, model string) (Model, error) {
	switch provider {
	case "openai":
		return NewOpenAIModel(model), nil
	case "gemini", "google":
		return NewGeminiModel(ctx, model)
	case "ollama":
		return NewOllamaModel(model)
	case "anthropic", "claude":
		return NewAnthropicModel(model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// truncateAtStop cuts text at the first occurrence of any stop sequence.
func truncateAtStop(text string, stop []string) string {
	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if idx := strings.Index(text, s); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return text[:cut]
}
