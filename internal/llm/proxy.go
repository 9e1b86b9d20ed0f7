package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseSize limits the completion response body.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// ProxyClient talks to the completion proxy endpoint: a single POST
// accepting {prompt, model} and returning an array of content blocks.
type ProxyClient struct {
	url        string
	httpClient *http.Client
}

// NewProxyClient creates a proxy-backed completion client.
func NewProxyClient(url string) *ProxyClient {
	return &ProxyClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Name returns the provider name.
func (c *ProxyClient) Name() string {
	return "proxy"
}

type proxyRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type proxyContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type proxyResponse struct {
	Content []proxyContentBlock `json:"content"`
	Model   string              `json:"model"`
}

type proxyErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Complete sends the prompt to the proxy and returns the first content
// block's text as the canonical completion.
func (c *ProxyClient) Complete(ctx context.Context, prompt, model string) (*Completion, error) {
	start := time.Now()

	body, err := json.Marshal(proxyRequest{Prompt: prompt, Model: model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp proxyErrorResponse
		// Best effort: the error body may not be JSON at all.
		if jsonErr := json.Unmarshal(raw, &errResp); jsonErr != nil || errResp.Details == "" {
			errResp.Details = string(raw)
		}
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Details:    errResp.Details,
		}
	}

	var parsed proxyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("completion response contained no content blocks")
	}

	servedModel := parsed.Model
	if servedModel == "" {
		servedModel = model
	}

	return &Completion{
		Text:      parsed.Content[0].Text,
		Model:     servedModel,
		Raw:       raw,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
