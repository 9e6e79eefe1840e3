// Package compute adapts external embedding services behind a single
// batch-capable client interface. Clients never touch the tier store; they
// are pure adapters over the network call.
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// embedRequest is the wire request for the generic HTTP embedding service.
type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

// embedResponse is the wire response. Vectors preserve input order.
type embedResponse struct {
	Vectors   [][]float32 `json:"vectors"`
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
}

// HTTPConfig configures the generic HTTP embedding client.
type HTTPConfig struct {
	// Endpoint is the full URL of the embedding service.
	Endpoint string

	// HTTPClient overrides the default client (30s dial-to-body timeout).
	HTTPClient *http.Client
}

// HTTPClient calls an embedding service speaking the plain JSON contract
// {texts, model} -> {vectors, model, dimension}.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient creates a client for the given endpoint.
func NewHTTPClient(config HTTPConfig) (*HTTPClient, error) {
	if config.Endpoint == "" {
		return nil, &ValidationError{Reason: "endpoint is required"}
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{endpoint: config.Endpoint, client: client}, nil
}

// ComputeBatch embeds texts with the given model, preserving order.
func (c *HTTPClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts, Model: model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Op: "post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("service returned %s: %s", resp.Status, bytes.TrimSpace(payload))
		if retryableStatus(resp.StatusCode) {
			return nil, &Error{Op: "post", Err: statusErr}
		}
		return nil, &ValidationError{Reason: statusErr.Error()}
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ValidationError{Reason: "malformed response body: " + err.Error()}
	}

	if len(parsed.Vectors) != len(texts) {
		return nil, &ValidationError{Reason: "vector count mismatch", Want: len(texts), Got: len(parsed.Vectors)}
	}
	if parsed.Dimension > 0 {
		for i, v := range parsed.Vectors {
			if len(v) != parsed.Dimension {
				return nil, &ValidationError{
					Reason: fmt.Sprintf("vector %d dimension mismatch", i),
					Want:   parsed.Dimension,
					Got:    len(v),
				}
			}
		}
	}

	return parsed.Vectors, nil
}

// retryableStatus reports whether an HTTP status indicates a transient
// condition. Server errors, throttling, and request timeouts qualify;
// other client errors signal a contract problem.
func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *HTTPClient) Close() {}
