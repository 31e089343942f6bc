package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
)

const completionJSON = `{"choices":[{"message":{"content":"{\"results\":[]}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`

func userRequest(text string) *driver.Request {
	return &driver.Request{
		Model:    "test-model",
		Messages: []driver.Message{{Role: driver.RoleUser, Content: text}},
	}
}

// fakeGateway answers every request with status and body and hands the
// decoded payload to inspect when set.
func fakeGateway(t *testing.T, status int, body string, inspect func(*http.Request, chatCompletionRequest)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			var payload chatCompletionRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			inspect(r, payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-key")
	client.HTTPClient = srv.Client()
	return client
}

func TestCompleteRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		req    *driver.Request
		want   string
	}{
		{"no key", NewClient("", ""), userRequest("hi"), "api key"},
		{"no model", NewClient("", "k"), &driver.Request{Messages: []driver.Message{{Content: "hi"}}}, "model is required"},
		{"no messages", NewClient("", "k"), &driver.Request{Model: "m"}, "messages are required"},
		{"nil request", NewClient("", "k"), nil, "request is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.Complete(context.Background(), tt.req)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCompleteSendsJSONModeRequest(t *testing.T) {
	client := fakeGateway(t, http.StatusOK, completionJSON, func(r *http.Request, payload chatCompletionRequest) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "test-model", payload.Model)
		if assert.Len(t, payload.Messages, 2) {
			assert.Equal(t, "system", payload.Messages[0].Role)
		}
		if assert.NotNil(t, payload.ResponseFormat) {
			assert.Equal(t, "json_object", payload.ResponseFormat.Type)
		}
	})

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "test-model",
		Messages: []driver.Message{
			{Role: driver.RoleSystem, Content: "You are an OSINT analyst."},
			{Role: driver.RoleUser, Content: "Jane Doe"},
		},
		ResponseFormat: &driver.ResponseFormat{Type: "json_object"},
	})
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Contains(t, resp.Text, "results")
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 3, resp.Usage.TotalTokens)
}

func TestCompleteReturnsProviderError(t *testing.T) {
	client := fakeGateway(t, http.StatusTooManyRequests, "slow down", nil)
	client.Provider = "gateway"

	_, err := client.Complete(context.Background(), userRequest("hi"))
	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.RateLimited())
	assert.Equal(t, "gateway", perr.Provider)
	assert.Equal(t, "slow down", perr.Message)
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := fakeGateway(t, http.StatusOK, `{"choices":[]}`, nil)
	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.ErrorContains(t, err, "empty response choices")
}

func TestCompleteHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	client.Timeout = 50 * time.Millisecond

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleteTracesWithoutKey(t *testing.T) {
	client := fakeGateway(t, http.StatusOK, completionJSON, nil)

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	stop, err := driver.EnableTracing(path)
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "test-key")

	var entry driver.TraceEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "openai", entry.Driver)
	assert.Equal(t, http.StatusOK, entry.StatusCode)
	assert.Equal(t, "test-model", entry.Model)
}
