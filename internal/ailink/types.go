package ailink

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AnalysisRequest is the input of the OSINT analysis function.
type AnalysisRequest struct {
	Query    string `json:"query"`
	SearchID string `json:"searchId,omitempty"`
	UserID   string `json:"userId,omitempty"`

	// Model overrides the provider's configured model.
	Model string `json:"-"`
}

// Function error codes.
const (
	CodeRateLimit       = "AILINK_PROVIDER_RATE_LIMIT"
	CodeAuth            = "AILINK_PROVIDER_AUTH"
	CodeUnavailable     = "AILINK_PROVIDER_UNAVAILABLE"
	CodeBadRequest      = "AILINK_PROVIDER_BAD_REQUEST"
	CodeTimeout         = "AILINK_PROVIDER_TIMEOUT"
	CodeProvider        = "AILINK_PROVIDER_ERROR"
	CodeResponseInvalid = "AILINK_RESPONSE_INVALID"
	CodeInvalidInput    = "AILINK_INVALID_INPUT"
	CodeNotConfigured   = "AILINK_NOT_CONFIGURED"
)

// RateLimitMessage is the user-facing message for upstream throttling.
const RateLimitMessage = "Rate limit exceeded. Please try again later."

// FunctionError is a classified analysis failure. Status is the HTTP status the
// function endpoint answers with.
type FunctionError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Status  int             `json:"-"`
	Details string          `json:"details,omitempty"`
	Raw     json.RawMessage `json:"-"`
	Err     error           `json:"-"`
}

func (e *FunctionError) Error() string {
	if e == nil {
		return "ailink error"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *FunctionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RateLimited reports whether the failure came from upstream throttling.
func (e *FunctionError) RateLimited() bool {
	return e != nil && e.Code == CodeRateLimit
}

// HTTPStatus returns Status, defaulting to 500.
func (e *FunctionError) HTTPStatus() int {
	if e == nil || e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func invalidResponse(message string, raw []byte, err error) *FunctionError {
	fe := &FunctionError{
		Code:    CodeResponseInvalid,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
	if err != nil {
		fe.Details = err.Error()
	}
	if len(raw) > 0 {
		fe.Raw = json.RawMessage(append([]byte(nil), raw...))
	}
	return fe
}
