package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/pkg/circuitbreaker"
)

// Result is the ranked output of a knowledge query.
type Result struct {
	Passages     []string `json:"passages"`
	SourceIDs    []string `json:"source_ids"`
	DiseaseHints []string `json:"disease_hints"`
}

// Client queries the knowledge retriever with an embedded query.
type Client interface {
	Query(ctx context.Context, text string) (*Result, error)
}

type httpClient struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	cb       *circuitbreaker.CircuitBreaker
	embedder *embedder
}

func NewClient(cfg config.EndpointConfig) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "retrieval",
			MaxRequests: 10,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
		}),
		embedder: &embedder{baseURL: cfg.BaseURL, apiKey: cfg.APIKey},
	}
}

func (c *httpClient) Query(ctx context.Context, text string) (*Result, error) {
	vector, err := c.embedder.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var out Result
	err = c.cb.Execute(func() error {
		body, err := json.Marshal(map[string]interface{}{"vector": vector, "top_k": 10})
		if err != nil {
			return fmt.Errorf("failed to marshal query: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("retrieval call failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("retrieval call returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// embedder is the shared query-embedding handle. The underlying client is
// stateless per call, so it is built once and shared read-only across
// concurrent turns.
type embedder struct {
	baseURL string
	apiKey  string

	once   sync.Once
	client *http.Client
}

func (e *embedder) embed(ctx context.Context, text string) ([]float64, error) {
	e.once.Do(func() {
		e.client = &http.Client{Timeout: 10 * time.Second}
	})

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed call returned status %d", resp.StatusCode)
	}

	var out struct {
		Vector []float64 `json:"vector"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	return out.Vector, nil
}
