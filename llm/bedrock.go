package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gialup03/luup-agent/errors"
)

const bedrockDefaultMaxTokens = 4096

// BedrockClient is a Client for Anthropic models served through AWS
// Bedrock. AWS credentials are taken from the environment.
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

func NewBedrockClient(ctx context.Context, modelID string) (*BedrockClient, error) {
	if modelID == "" {
		return nil, errors.New("bedrock backend requires a model ID")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func (b *BedrockClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = bedrockDefaultMaxTokens
	}
	body, err := json.Marshal(map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"temperature":       temperature,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "text", "text": prompt},
				},
			},
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode Bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", &InferenceError{Backend: "bedrock", Err: err}
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp.Body, &response); err != nil {
		return "", &InferenceError{Backend: "bedrock", Err: errors.Wrapf(err, "malformed Bedrock response")}
	}

	var full strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	return full.String(), nil
}

// GenerateStream delivers the whole completion to the sink in one call;
// Bedrock's event-stream API is not wired up yet.
func (b *BedrockClient) GenerateStream(ctx context.Context, prompt string, temperature float64, maxTokens int, onToken func(string)) (string, error) {
	text, err := b.Generate(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return "", err
	}
	if text != "" {
		onToken(text)
	}
	return text, nil
}
