package compute

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_ComputeBatch(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "nomic-embed-v1" {
			t.Errorf("unexpected model %q", req.Model)
		}

		vectors := make([][]float32, len(req.Texts))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 1, 2}
		}
		json.NewEncoder(w).Encode(embedResponse{
			Vectors:   vectors,
			Model:     req.Model,
			Dimension: 3,
		})
	})

	client, err := NewHTTPClient(HTTPConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	vectors, err := client.ComputeBatch(context.Background(), []string{"a", "b"}, "nomic-embed-v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[1][0] != 1 {
		t.Error("expected vectors to preserve input order")
	}
}

func TestHTTPClient_CountMismatchIsValidationError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{
			Vectors: [][]float32{{1, 2, 3}},
		})
	})

	client, _ := NewHTTPClient(HTTPConfig{Endpoint: srv.URL})
	_, err := client.ComputeBatch(context.Background(), []string{"a", "b"}, "m")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Want != 2 || ve.Got != 1 {
		t.Errorf("unexpected counts in %v", ve)
	}
}

func TestHTTPClient_DimensionMismatchIsValidationError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{
			Vectors:   [][]float32{{1, 2}},
			Dimension: 3,
		})
	})

	client, _ := NewHTTPClient(HTTPConfig{Endpoint: srv.URL})
	_, err := client.ComputeBatch(context.Background(), []string{"a"}, "m")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHTTPClient_ServerErrorIsRetryable(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	client, _ := NewHTTPClient(HTTPConfig{Endpoint: srv.URL})
	_, err := client.ComputeBatch(context.Background(), []string{"a"}, "m")

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected retryable compute error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("5xx must be retryable")
	}
}

func TestHTTPClient_ClientErrorIsTerminal(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown model", http.StatusBadRequest)
	})

	client, _ := NewHTTPClient(HTTPConfig{Endpoint: srv.URL})
	_, err := client.ComputeBatch(context.Background(), []string{"a"}, "m")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected terminal validation error, got %v", err)
	}
}

func TestHTTPClient_MalformedBodyIsValidationError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	client, _ := NewHTTPClient(HTTPConfig{Endpoint: srv.URL})
	_, err := client.ComputeBatch(context.Background(), []string{"a"}, "m")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewHTTPClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}); err == nil {
		t.Error("expected error for missing endpoint")
	}
}
