package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ARedaUni/teloshousemeet/internal/config"
)

// Client calls the Jina embeddings REST API:
//
//	POST {baseURL}/embeddings
//
// with the text-matching task and late chunking enabled, so long summary
// documents embed coherently.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// NewClient constructs a Jina embeddings client from configuration.
func NewClient(cfg config.EmbeddingConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

type embedRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task"`
	LateChunking  bool     `json:"late_chunking"`
	Dimensions    int      `json:"dimensions"`
	EmbeddingType string   `json:"embedding_type"`
	Input         []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.apiKey == "" {
		return nil, &ProviderError{Op: "embed", Err: errors.New("API key is not configured (set JINA_API_KEY)")}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ProviderError{Op: "embed", Err: errors.New("cannot embed empty text")}
	}

	payload := embedRequest{
		Model:         c.model,
		Task:          "text-matching",
		LateChunking:  true,
		Dimensions:    c.dimensions,
		EmbeddingType: "float",
		Input:         []string{text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Op: "embed", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Op:        "embed",
			Status:    resp.StatusCode,
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       errors.New(strings.TrimSpace(string(respBody))),
		}
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &ProviderError{Op: "embed", Err: errors.New("response missing embedding")}
	}

	emb := parsed.Data[0].Embedding
	if c.dimensions > 0 && len(emb) != c.dimensions {
		return nil, &ProviderError{
			Op:  "embed",
			Err: fmt.Errorf("expected %d-dimensional embedding, got %d", c.dimensions, len(emb)),
		}
	}

	return emb, nil
}
