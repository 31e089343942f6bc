package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
)

func request() *driver.Request {
	return &driver.Request{
		Model: "gemini-2.5-flash",
		Messages: []driver.Message{
			{Role: driver.RoleSystem, Content: "You are an OSINT assistant."},
			{Role: driver.RoleUser, Content: "Jane Doe"},
		},
		ResponseFormat: &driver.ResponseFormat{Type: "json_object"},
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "").Complete(context.Background(), request())
	require.ErrorContains(t, err, "api key")
}

func TestClientRequiresUserTurn(t *testing.T) {
	req := &driver.Request{Model: "m", Messages: []driver.Message{{Role: driver.RoleSystem, Content: "only system"}}}
	_, err := NewClient("", "key").Complete(context.Background(), req)
	require.ErrorContains(t, err, "messages are required")
}

func TestClientGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent"), r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Contains(t, payload, "systemInstruction")
		genCfg, ok := payload["generationConfig"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "application/json", genCfg["responseMimeType"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"results\":[]}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 6, "totalTokenCount": 10}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, `{"results":[]}`, resp.Text)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestClientMapsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), request())
	require.Error(t, err)

	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr), "got %T: %v", err, err)
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.True(t, perr.RateLimited())
}
