package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
)

const (
	maxResponseBytes = 4 << 20
	// maxErrorBody bounds the raw body quoted in an error.
	maxErrorBody = 200
)

// Client calls a deployed analysis function over HTTP. It never retries.
type Client struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client for the function at url.
func NewClient(url, apiKey string) *Client {
	return &Client{URL: strings.TrimSpace(url), APIKey: strings.TrimSpace(apiKey)}
}

// Analyze posts the request and classifies the answer.
func (c *Client) Analyze(ctx context.Context, req engine.AnalysisRequest) (*core.SearchData, error) {
	if c == nil || strings.TrimSpace(c.URL) == "" {
		return nil, fmt.Errorf("analysis function url not configured")
	}

	body, err := json.Marshal(Request{Query: req.Query, SearchID: req.SearchID, UserID: req.UserID})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed Response
	decodeErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: ErrRateLimited, Status: resp.StatusCode, Message: errorMessage(parsed, respBody)}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &Error{Kind: ErrRemote, Status: resp.StatusCode, Message: errorMessage(parsed, respBody)}
	}
	if decodeErr != nil {
		return nil, &Error{Kind: ErrMalformed, Status: resp.StatusCode, Message: decodeErr.Error()}
	}
	if !parsed.Success {
		return nil, &Error{Kind: ErrRemote, Status: resp.StatusCode, Message: errorMessage(parsed, respBody)}
	}
	if err := parsed.Data.Validate(); err != nil {
		return nil, &Error{Kind: ErrMalformed, Status: resp.StatusCode, Message: err.Error()}
	}
	return parsed.Data, nil
}

func errorMessage(parsed Response, raw []byte) string {
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return msg
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	if msg == "" {
		return "empty response"
	}
	return msg
}
