package analysis

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/core"
)

type stubService struct {
	data *core.SearchData
	err  error
	got  ailink.AnalysisRequest
}

func (s *stubService) Analyze(_ context.Context, req ailink.AnalysisRequest) (*core.SearchData, error) {
	s.got = req
	return s.data, s.err
}

func TestLocalPassesRequest(t *testing.T) {
	svc := &stubService{data: &core.SearchData{Results: []core.ProfileResult{}, Summary: &core.SearchSummary{}}}
	local := &Local{Service: svc, Model: "m"}

	data, err := local.Analyze(context.Background(), analysisRequest())
	require.NoError(t, err)
	require.NotNil(t, data)
	require.Equal(t, ailink.AnalysisRequest{Query: "Jane Doe", SearchID: "s1", UserID: "u1", Model: "m"}, svc.got)
}

func TestLocalClassifiesFunctionErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"rate limit", &ailink.FunctionError{Code: ailink.CodeRateLimit, Message: ailink.RateLimitMessage, Status: http.StatusTooManyRequests}, ErrRateLimited},
		{"invalid", &ailink.FunctionError{Code: ailink.CodeResponseInvalid, Message: "Failed to parse search results"}, ErrMalformed},
		{"auth", &ailink.FunctionError{Code: ailink.CodeAuth, Message: "provider authentication failed"}, ErrRemote},
		{"plain", errors.New("boom"), ErrRemote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			local := &Local{Service: &stubService{err: tc.err}}
			_, err := local.Analyze(context.Background(), analysisRequest())
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestLocalNotConfigured(t *testing.T) {
	_, err := (&Local{}).Analyze(context.Background(), analysisRequest())
	require.Error(t, err)
}
