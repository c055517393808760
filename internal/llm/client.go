// Package llm provides LLM client implementations for the providers
// Solace can talk to. The backend is chosen once at construction from
// the configured model name; every backend exposes the same Complete
// method, so callers never see provider-specific types.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nholloway/solace-agent/internal/config"
)

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Options are sampling parameters for a completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client is the interface all LLM providers implement.
type Client interface {
	// Complete sends a chat completion request and returns the
	// assistant's text response.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// New selects a provider backend from the configured model name.
// The set of providers is closed: OpenAI-compatible (OpenAI, Deepseek),
// Gemini, and Ollama for anything local.
func New(cfg *config.Config, logger *slog.Logger) (Client, error) {
	model := cfg.Model.Name
	switch {
	case strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3"):
		if cfg.Providers.OpenAIKey == "" {
			return nil, fmt.Errorf("model %q requires OPENAI_API_KEY", model)
		}
		return NewOpenAIClient(cfg.Providers.OpenAIURL, cfg.Providers.OpenAIKey, model, logger), nil

	case strings.HasPrefix(model, "deepseek"):
		if cfg.Providers.DeepseekKey == "" {
			return nil, fmt.Errorf("model %q requires DEEPSEEK_API_KEY", model)
		}
		return NewOpenAIClient(cfg.Providers.DeepseekURL, cfg.Providers.DeepseekKey, model, logger), nil

	case strings.HasPrefix(model, "gemini"):
		if cfg.Providers.GeminiKey == "" {
			return nil, fmt.Errorf("model %q requires GEMINI_API_KEY", model)
		}
		return NewGeminiClient(cfg.Providers.GeminiAPIURL, cfg.Providers.GeminiKey, model, logger), nil

	default:
		// Anything unrecognized is assumed to be a local Ollama model.
		return NewOllamaClient(cfg.Providers.OllamaURL, model, logger), nil
	}
}
