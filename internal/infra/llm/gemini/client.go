// Package gemini wraps the Google generative AI SDK behind the interfaces the
// chat and knowledge domains consume.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hamyar-ai/hamyar/pkg/metrics"
)

// Client performs generation and embedding calls against Gemini.
type Client struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
}

// NewClient constructs a Gemini client. An empty API key is rejected here so
// a missing credential fails at startup, not deep inside a request.
func NewClient(ctx context.Context, apiKey, modelName, embeddingModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{
		client:         client,
		modelName:      modelName,
		embeddingModel: embeddingModel,
	}, nil
}

// Generate runs a single grounded completion. A fresh model value is built per
// call because the system instruction is request-scoped.
func (c *Client) Generate(ctx context.Context, systemInstruction, prompt string) (string, *metrics.TokenUsage, error) {
	model := c.client.GenerativeModel(c.modelName)
	if systemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemInstruction)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", nil, err
	}
	if len(resp.Candidates) == 0 {
		return "", nil, errors.New("no response generated")
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}

	var usage *metrics.TokenUsage
	if resp.UsageMetadata != nil {
		usage = metrics.FromCounts(
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount),
			int(resp.UsageMetadata.TotalTokenCount),
		)
	}
	return b.String(), usage, nil
}

// Embed produces the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.client.EmbeddingModel(c.embeddingModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("embedding response empty")
	}
	return resp.Embedding.Values, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
