package llm

import (
	"context"
	"os"
	"strings"

	"github.com/gialup03/luup-agent/errors"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient is a Client backed by the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient creates a GeminiClient. It requires the GEMINI_API_KEY
// environment variable to be set.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	if modelName == "" {
		return nil, errors.New("gemini backend requires a model name")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiClient{model: client.GenerativeModel(modelName)}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	g.configure(temperature, maxTokens)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &InferenceError{Backend: "gemini", Err: err}
	}
	return geminiText(resp), nil
}

func (g *GeminiClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	g.configure(temperature, maxTokens)
	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", &InferenceError{Backend: "gemini", Err: err}
		}
		if delta := geminiText(resp); delta != "" {
			full.WriteString(delta)
			onToken(delta)
		}
	}
	return full.String(), nil
}

func (g *GeminiClient) configure(temperature float64, maxTokens int) {
	g.model.SetTemperature(float32(temperature))
	if maxTokens > 0 {
		g.model.SetMaxOutputTokens(int32(maxTokens))
	}
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var full strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			full.WriteString(string(text))
		}
	}
	return full.String()
}
