package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gialup03/luup-agent/errors"
	"github.com/ollama/ollama/api"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaClient serves local models through an Ollama server. Prompts are
// sent raw: the agent renders its own turn delimiters, so the server-side
// chat template must not be applied on top.
type OllamaClient struct {
	client *api.Client
	model  string
}

func NewOllamaClient(baseURL, model string) (*OllamaClient, error) {
	if model == "" {
		return nil, errors.New("ollama backend requires a model name")
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid Ollama URL %q", baseURL)
	}
	return &OllamaClient{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}, nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	var full strings.Builder
	err := c.generate(ctx, prompt, temperature, maxTokens, false, func(resp api.GenerateResponse) error {
		full.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", &InferenceError{Backend: "ollama", Err: err}
	}
	return full.String(), nil
}

func (c *OllamaClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	var full strings.Builder
	err := c.generate(ctx, prompt, temperature, maxTokens, true, func(resp api.GenerateResponse) error {
		if resp.Response != "" {
			full.WriteString(resp.Response)
			onToken(resp.Response)
		}
		return nil
	})
	if err != nil {
		return "", &InferenceError{Backend: "ollama", Err: err}
	}
	return full.String(), nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt string, temperature float64, maxTokens int, stream bool, fn api.GenerateResponseFunc) error {
	options := map[string]interface{}{
		"temperature": temperature,
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Raw:     true,
		Stream:  &stream,
		Options: options,
	}
	return c.client.Generate(ctx, req, fn)
}
