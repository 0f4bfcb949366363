package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ARedaUni/teloshousemeet/internal/config"
	"github.com/ARedaUni/teloshousemeet/internal/logger"
)

// Transcript statuses reported by AssemblyAI
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// SummaryModel is the LeMur model used for meeting summaries
const SummaryModel = "anthropic/claude-3-5-sonnet"

// SummaryPrompt asks for a structured meeting summary. The closing section
// marker matches what the matcher's text preparation looks for.
const SummaryPrompt = `Summarize this meeting transcript concisely. Include:
- Main topics discussed
- Decisions made
- Action items with owners

End with a section that begins exactly with "Key extractions:" listing the
meeting title or purpose, the participants, and any project names mentioned.`

// Transcript holds the state of a transcription job
type Transcript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Client calls the AssemblyAI transcription and LeMur APIs
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
}

// NewClient creates an AssemblyAI client from configuration
func NewClient(cfg config.TranscriptionConfig) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
	}
}

// Submit starts a transcription job for an audio URL and returns its ID
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("transcription API key is not configured (set ASSEMBLY_AI_API_KEY)")
	}
	if audioURL == "" {
		return "", errors.New("audio URL is required")
	}

	payload := map[string]any{
		"audio_url":      audioURL,
		"speaker_labels": true,
	}

	var transcript Transcript
	if err := c.post(ctx, "/v2/transcript", payload, &transcript); err != nil {
		return "", err
	}
	if transcript.ID == "" {
		return "", errors.New("transcription response missing ID")
	}

	logger.Info().Str("transcript_id", transcript.ID).Msg("transcription job submitted")
	return transcript.ID, nil
}

// Get fetches the current state of a transcription job
func (c *Client) Get(ctx context.Context, id string) (*Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	var transcript Transcript
	if err := c.do(req, &transcript); err != nil {
		return nil, err
	}
	return &transcript, nil
}

// WaitForCompletion polls a job until it completes or fails
func (c *Client) WaitForCompletion(ctx context.Context, id string) (*Transcript, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		transcript, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		switch transcript.Status {
		case StatusCompleted:
			return transcript, nil
		case StatusError:
			return nil, fmt.Errorf("transcription failed: %s", transcript.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Summarize generates a meeting summary from a completed transcript via LeMur
func (c *Client) Summarize(ctx context.Context, transcriptID string) (string, error) {
	payload := map[string]any{
		"transcript_ids": []string{transcriptID},
		"prompt":         SummaryPrompt,
		"final_model":    SummaryModel,
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/lemur/v3/generate/task", payload, &result); err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", errors.New("summary response is empty")
	}

	return strings.TrimSpace(result.Response), nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transcription API: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse transcription response: %w", err)
	}
	return nil
}
