package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Prediction is one keyword emitted by the classification model.
type Prediction struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Client communicates with a local keyword classification service over HTTP.
// The service is a black box: POST /classify takes text and returns scored
// keywords. Any transport or decoding failure surfaces as a plain error so
// the extractor can fall back to its heuristic.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given classifier base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// IsRunning returns true if the classifier responds to GET /health with 200.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// classifyRequest is the JSON body for POST /classify.
type classifyRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

// classifyResponse mirrors the JSON returned by POST /classify.
type classifyResponse struct {
	Keywords []Prediction `json:"keywords"`
}

// Classify sends text to the classification model and returns its scored
// keywords in model order.
func (c *Client) Classify(ctx context.Context, model, text string) ([]Prediction, error) {
	body, err := json.Marshal(classifyRequest{Model: model, Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshalling classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting classification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.Keywords, nil
}
