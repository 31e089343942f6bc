package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
)

func analysisRequest() engine.AnalysisRequest {
	return engine.AnalysisRequest{Query: "Jane Doe", SearchID: "s1", UserID: "u1"}
}

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "")
	client.HTTPClient = server.Client()
	return client
}

func TestClientSendsRequestBody(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"data":{"results":[],"summary":{"total_found":0,"exposure_level":"low","platforms_found":[],"key_insights":[]}},"searchId":"s1","query":"Jane Doe"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	data, err := client.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)
	require.Empty(t, data.Results)
	require.Equal(t, core.ExposureLow, data.Summary.ExposureLevel)
	require.Equal(t, Request{Query: "Jane Doe", SearchID: "s1", UserID: "u1"}, got)
}

func TestClientClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"Rate limit exceeded. Please try again later."}`, ErrRateLimited},
		{"server error", http.StatusInternalServerError, `{"success":false,"error":"boom"}`, ErrRemote},
		{"explicit failure", http.StatusOK, `{"success":false,"error":"Search failed"}`, ErrRemote},
		{"not json", http.StatusOK, `<html>`, ErrMalformed},
		{"missing summary", http.StatusOK, `{"success":true,"data":{"results":[]}}`, ErrMalformed},
		{"missing data", http.StatusOK, `{"success":true}`, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := serve(t, tc.status, tc.body)
			_, err := client.Analyze(context.Background(), analysisRequest())
			require.ErrorIs(t, err, tc.kind)

			var aerr *Error
			require.True(t, errors.As(err, &aerr))
			require.Equal(t, tc.kind == ErrRateLimited, aerr.RateLimited())
		})
	}
}

func TestClientRateLimitMessage(t *testing.T) {
	client := serve(t, http.StatusTooManyRequests, `{"error":"Rate limit exceeded. Please try again later."}`)
	_, err := client.Analyze(context.Background(), analysisRequest())

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	require.Equal(t, "Rate limit exceeded. Please try again later.", aerr.Message)
	require.Equal(t, http.StatusTooManyRequests, aerr.Status)
}

func TestClientTruncatesErrorBodyOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)
	client := serve(t, http.StatusBadGateway, body)
	_, err := client.Analyze(context.Background(), analysisRequest())

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	require.True(t, utf8.ValidString(aerr.Message))
	require.Equal(t, strings.Repeat("a", maxErrorBody-1), aerr.Message)
	require.True(t, utf8.ValidString(err.Error()))
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	client.Timeout = 20 * time.Millisecond
	_, err := client.Analyze(context.Background(), analysisRequest())
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientRequiresURL(t *testing.T) {
	_, err := NewClient(" ", "").Analyze(context.Background(), analysisRequest())
	require.ErrorContains(t, err, "url not configured")
}
