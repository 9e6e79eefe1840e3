package compute

import (
	"context"
	"os"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIConfig configures the OpenAI embedding client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	OrgID   string
}

// OpenAIClient computes embeddings via OpenAI's embeddings API. The model
// passed to ComputeBatch selects the embedding model per call.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an OpenAI-backed compute client. The API key
// falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, &ValidationError{Reason: "OpenAI API key is required"}
		}
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.OrgID != "" {
		opts = append(opts, option.WithOrganization(config.OrgID))
	}

	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client}, nil
}

// ComputeBatch embeds texts with the given model, preserving order.
func (c *OpenAIClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, &Error{Op: "embeddings", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &ValidationError{Reason: "vector count mismatch", Want: len(texts), Got: len(resp.Data)}
	}

	// The API reports each embedding's position; honor it rather than
	// assuming response order.
	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, &ValidationError{Reason: "embedding index out of range", Want: len(texts), Got: idx}
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors[idx] = vector
	}
	for i, v := range vectors {
		if v == nil {
			return nil, &ValidationError{Reason: "missing embedding in response", Want: len(texts), Got: i}
		}
	}

	return vectors, nil
}

// Close is a no-op; the SDK client holds no dedicated resources.
func (c *OpenAIClient) Close() {}
