package llm

import (
	"context"
	"os"
	"strings"

	"github.com/gialup03/luup-agent/errors"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient is a Client backed by the official OpenAI SDK. Use
// RemoteClient instead when pointing at a self-hosted OpenAI-compatible
// server; this client is for the hosted API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAIClient. It requires the OPENAI_API_KEY
// environment variable and honors OPENAI_BASE_URL for custom endpoints.
func NewOpenAIClient(ctx context.Context, modelName string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	if modelName == "" {
		return nil, errors.New("openai backend requires a model name")
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	return &OpenAIClient{client: &c, model: modelName}, nil
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(prompt, temperature, maxTokens))
	if err != nil {
		return "", &InferenceError{Backend: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(prompt, temperature, maxTokens))

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			onToken(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", &InferenceError{Backend: "openai", Err: err}
	}
	return full.String(), nil
}

func (o *OpenAIClient) params(prompt string, temperature float64, maxTokens int) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	return params
}
