// Package gemini implements the completion driver for Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
)

// Client wraps a lazily constructed genai client.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration

	mu     sync.Mutex
	client *genai.Client
}

// NewClient returns a Gemini driver. baseURL is optional.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsJSONMode: true}
}

func (c *Client) genaiClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     c.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if c.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.client = client
	return client, nil
}

// Complete sends a generateContent request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	system, turns := req.SystemAndTurns()
	if len(turns) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	client, err := c.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		role := genai.Role(genai.RoleUser)
		if msg.Role == "assistant" || msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	genCfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(system) != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.ResponseFormat.IsJSON() {
		genCfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		genCfg.MaxOutputTokens = int32(*req.MaxTokens)
	}

	trace := driver.TraceEntry{Driver: c.Name(), Endpoint: "models.generateContent", Model: req.Model, PromptSlug: req.PromptSlug}
	if body, err := json.Marshal(map[string]any{"system": system, "turns": turns}); err == nil {
		trace.RequestBody = body
	}
	start := time.Now()

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	trace.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		trace.Error = err.Error()
		mapped := mapError(err)
		if perr, ok := mapped.(*driver.ProviderError); ok {
			trace.StatusCode = perr.StatusCode
		}
		driver.Trace(trace)
		return nil, mapped
	}

	text := resp.Text()
	trace.StatusCode = http.StatusOK
	trace.Response = []byte(text)
	driver.Trace(trace)

	out := &driver.Response{Text: text}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = &driver.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

// mapError converts genai API failures into driver.ProviderError so status
// handling stays provider-agnostic.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &driver.ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Message: strings.TrimSpace(apiErr.Message)}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &driver.ProviderError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: strings.TrimSpace(apiErrPtr.Message)}
	}
	return fmt.Errorf("request failed: %w", err)
}
