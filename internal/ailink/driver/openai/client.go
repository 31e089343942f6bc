package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// maxResponseBytes caps how much of a completion body is read.
	maxResponseBytes = 8 << 20
)

// Client calls an OpenAI-compatible chat completions endpoint. Gateways with
// the same shape (the Lovable AI gateway, OpenRouter, xAI) only need BaseURL.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	// Provider names the driver in errors and traces. Empty means "openai".
	Provider string
}

// NewClient returns a client for baseURL, or the OpenAI API when empty.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{BaseURL: baseURL, APIKey: strings.TrimSpace(apiKey)}
}

// Name returns the configured provider label.
func (c *Client) Name() string {
	if c != nil && strings.TrimSpace(c.Provider) != "" {
		return c.Provider
	}
	return "openai"
}

// Capabilities reports JSON mode support.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsJSONMode: true}
}

// Complete posts req to /chat/completions. Non-2xx answers come back as
// *driver.ProviderError.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	trace := driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    endpoint,
		Model:       payload.Model,
		PromptSlug:  req.PromptSlug,
		RequestBody: body,
	}
	status, raw, err := c.post(ctx, endpoint, body, &trace)
	if err != nil {
		return nil, err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &driver.ProviderError{
			Provider:    c.Name(),
			StatusCode:  status,
			Message:     strings.TrimSpace(string(raw)),
			RawResponse: raw,
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toDriverResponse(&parsed)
}

// post sends body and returns the status and response body. The exchange is
// written to the active tracer without the API key.
func (c *Client) post(ctx context.Context, endpoint string, body []byte, trace *driver.TraceEntry) (int, []byte, error) {
	start := time.Now()
	defer func() {
		trace.DurationMs = time.Since(start).Milliseconds()
		driver.Trace(*trace)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		trace.Error = err.Error()
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		trace.Error = err.Error()
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // body fully read below

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	trace.StatusCode = resp.StatusCode
	trace.Response = raw
	if err != nil {
		trace.Error = err.Error()
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
