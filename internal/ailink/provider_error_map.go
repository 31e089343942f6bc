package ailink

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
)

// providerFailure is how one class of upstream answer surfaces to callers.
type providerFailure struct {
	code    string
	message string
	status  int
}

var (
	failAuth        = providerFailure{CodeAuth, "provider authentication failed", http.StatusBadGateway}
	failRateLimit   = providerFailure{CodeRateLimit, RateLimitMessage, http.StatusTooManyRequests}
	failUnavailable = providerFailure{CodeUnavailable, "provider unavailable", http.StatusBadGateway}
	failRejected    = providerFailure{CodeBadRequest, "provider rejected request", http.StatusInternalServerError}
	failOther       = providerFailure{CodeProvider, "provider request failed", http.StatusInternalServerError}
	failTimeout     = providerFailure{CodeTimeout, "provider request timed out", http.StatusGatewayTimeout}
)

// classifyStatus maps an upstream HTTP status. Quota refusals pass through as
// 429 so the search records a rate-limit failure.
func classifyStatus(status int) providerFailure {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return failAuth
	case status == http.StatusTooManyRequests:
		return failRateLimit
	case status >= 500 && status <= 599:
		return failUnavailable
	case status >= 400 && status <= 499:
		return failRejected
	}
	return failOther
}

// mapProviderError converts a driver error into the function's error type.
func mapProviderError(err error) *FunctionError {
	if err == nil {
		return nil
	}

	kind, details := failOther, err.Error()
	var perr *driver.ProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind, details = failTimeout, ""
	case errors.As(err, &perr) && perr != nil:
		kind, details = classifyStatus(perr.StatusCode), strings.TrimSpace(perr.Message)
	}
	return &FunctionError{Code: kind.code, Message: kind.message, Status: kind.status, Details: details, Err: err}
}
