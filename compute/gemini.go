package compute

import (
	"context"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini embedding client.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Falls back to the SDK's
	// environment-based resolution when empty.
	APIKey string
}

// GeminiClient computes embeddings via Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed compute client.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Op: "client", Err: err}
	}
	return &GeminiClient{client: client}, nil
}

// ComputeBatch embeds texts with the given model, preserving order. Each
// text becomes one content; Gemini returns one embedding per content.
func (c *GeminiClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		}
	}

	result, err := c.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, &Error{Op: "embed_content", Err: err}
	}
	if len(result.Embeddings) != len(texts) {
		return nil, &ValidationError{Reason: "vector count mismatch", Want: len(texts), Got: len(result.Embeddings)}
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, &ValidationError{Reason: "empty embedding in response", Want: len(texts), Got: i}
		}
		vectors[i] = embedding.Values
	}

	return vectors, nil
}

// Close is a no-op; the SDK client holds no dedicated resources.
func (c *GeminiClient) Close() {}
