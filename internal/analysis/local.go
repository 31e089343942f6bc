package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
)

// Service is the in-process analysis function.
type Service interface {
	Analyze(ctx context.Context, req ailink.AnalysisRequest) (*core.SearchData, error)
}

// Local runs the analysis function in-process.
type Local struct {
	Service Service
	Model   string
}

// Analyze calls the service and classifies its errors like the HTTP client does.
func (l *Local) Analyze(ctx context.Context, req engine.AnalysisRequest) (*core.SearchData, error) {
	if l == nil || l.Service == nil {
		return nil, fmt.Errorf("analysis service not configured")
	}

	data, err := l.Service.Analyze(ctx, ailink.AnalysisRequest{
		Query:    req.Query,
		SearchID: req.SearchID,
		UserID:   req.UserID,
		Model:    l.Model,
	})
	if err != nil {
		var fe *ailink.FunctionError
		if errors.As(err, &fe) {
			switch {
			case fe.RateLimited():
				return nil, &Error{Kind: ErrRateLimited, Status: fe.HTTPStatus(), Message: fe.Message}
			case fe.Code == ailink.CodeResponseInvalid:
				return nil, &Error{Kind: ErrMalformed, Status: fe.HTTPStatus(), Message: fe.Error()}
			default:
				return nil, &Error{Kind: ErrRemote, Status: fe.HTTPStatus(), Message: fe.Error()}
			}
		}
		return nil, &Error{Kind: ErrRemote, Message: err.Error()}
	}
	return data, nil
}
