package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gialup03/luup-agent/errors"
)

const defaultRemoteBaseURL = "https://api.openai.com/v1"

// RemoteConfig configures a RemoteClient.
type RemoteConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1" or a
	// llama-server / vLLM endpoint. Defaults to the OpenAI API.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model is the model name placed in each request. Required.
	Model string
	// HTTPClient overrides the transport; http.DefaultClient otherwise.
	HTTPClient *http.Client
}

// RemoteClient talks to any OpenAI-chat-completions-compatible endpoint
// over plain HTTP. The streaming path decodes the SSE response body
// incrementally through DecodeEventStream.
type RemoteClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewRemoteClient(cfg RemoteConfig) (*RemoteClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("remote backend requires a model name")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRemoteBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    httpClient,
	}, nil
}

func (c *RemoteClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.post(ctx, prompt, temperature, maxTokens, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &InferenceError{Backend: "remote", Err: errors.Wrapf(err, "malformed completion response")}
	}
	if len(completion.Choices) == 0 {
		return "", &InferenceError{Backend: "remote", Err: errors.New("no content in API response")}
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *RemoteClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	resp, err := c.post(ctx, prompt, temperature, maxTokens, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = DecodeEventStream(resp.Body, func(delta string) {
		full.WriteString(delta)
		onToken(delta)
	})
	if err != nil {
		return "", &InferenceError{Backend: "remote", Err: err}
	}
	return full.String(), nil
}

func (c *RemoteClient) post(ctx context.Context, prompt string, temperature float64, maxTokens int, stream bool) (*http.Response, error) {
	request := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
		"stream":      stream,
	}
	if maxTokens > 0 {
		request["max_tokens"] = maxTokens
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &InferenceError{Backend: "remote", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &InferenceError{Backend: "remote", Err: apiError(resp)}
	}
	return resp, nil
}

// apiError extracts the endpoint's error message when the body carries
// one, falling back to the raw body.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, payload.Error.Message)
	}
	return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
