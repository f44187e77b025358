package llm

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gialup03/luup-agent/errors"
)

// Anthropic requires an explicit token limit on every request.
const anthropicDefaultMaxTokens = 4096

// AnthropicClient is a Client backed by the Anthropic API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates an AnthropicClient. It requires the
// ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicClient(ctx context.Context, modelName string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	if modelName == "" {
		return nil, errors.New("anthropic backend requires a model name")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{client: &client, model: modelName}, nil
}

func (a *AnthropicClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	resp, err := a.client.Messages.New(ctx, a.params(prompt, temperature, maxTokens))
	if err != nil {
		return "", &InferenceError{Backend: "anthropic", Err: err}
	}

	var full strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	return full.String(), nil
}

func (a *AnthropicClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(prompt, temperature, maxTokens))

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					full.WriteString(delta.Text)
					onToken(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", &InferenceError{Backend: "anthropic", Err: err}
	}
	return full.String(), nil
}

func (a *AnthropicClient) params(prompt string, temperature float64, maxTokens int) anthropic.MessageNewParams {
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(temperature),
	}
}
