package llm

import (
	"context"
	"os"

	"github.com/gialup03/luup-agent/errors"
)

// Backend names a Client implementation.
type Backend string

const (
	BackendRemote    Backend = "remote"
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
	BackendGemini    Backend = "gemini"
	BackendBedrock   Backend = "bedrock"
	BackendOllama    Backend = "ollama"
)

// Config selects and configures a backend.
type Config struct {
	Backend Backend
	Model   string
	// BaseURL applies to the remote and ollama backends.
	BaseURL string
	// APIKey applies to the remote backend; SDK backends read their keys
	// from the environment.
	APIKey string
}

// NewClient constructs the Client named by cfg.Backend.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Backend {
	case BackendRemote:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewRemoteClient(RemoteConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Model,
		})
	case BackendOpenAI:
		return NewOpenAIClient(ctx, cfg.Model)
	case BackendAnthropic:
		return NewAnthropicClient(ctx, cfg.Model)
	case BackendGemini:
		return NewGeminiClient(ctx, cfg.Model)
	case BackendBedrock:
		return NewBedrockClient(ctx, cfg.Model)
	case BackendOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model)
	default:
		return nil, errors.New("unknown LLM backend %q", cfg.Backend)
	}
}
