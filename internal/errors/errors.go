// Package errors builds gofulmen error envelopes for the service and writes
// them as JSON error bodies.
package errors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/metrics"
	"github.com/headhuntertrace/headhunter/internal/observability"
	"github.com/headhuntertrace/headhunter/internal/server/middleware"
)

// Error codes returned by the HTTP surface.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeConflict            = "CONFLICT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeDatabase            = "DATABASE_ERROR"
	CodeDataProcessing      = "DATA_PROCESSING_ERROR"
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeTimeout             = "TIMEOUT"
)

// causeKey holds the wrapped error text in the envelope context. It is
// logged but never sent to callers.
const causeKey = "wrapped_error"

var statusByCode = map[string]int{
	CodeInvalidInput:        http.StatusBadRequest,
	CodeValidationFailed:    http.StatusBadRequest,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeInsufficientCredits: http.StatusPaymentRequired,
	CodeForbidden:           http.StatusForbidden,
	CodeNotFound:            http.StatusNotFound,
	CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	CodeConflict:            http.StatusConflict,
	CodeRateLimited:         http.StatusTooManyRequests,
	CodeTimeout:             http.StatusGatewayTimeout,
	CodeExternalService:     http.StatusBadGateway,
	CodeServiceUnavailable:  http.StatusServiceUnavailable,
}

// HTTPStatusFromCode maps an error code to its HTTP status. Unknown codes are
// 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HTTPStatusFromEnvelope maps an envelope to its HTTP status.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// New builds an envelope for code without request context.
func New(code, message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(code, message)
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return New(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return New(CodeNotFound, message)
}

func NewUnauthorizedError(message string) *errors.ErrorEnvelope {
	return New(CodeUnauthorized, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return New(CodeInternal, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return New(CodeMethodNotAllowed, message)
}

// Wrap builds an envelope for code stamped with the request id of ctx. The
// text of err is kept for logs.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestID(ctx)
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(id).
		WithTraceID(id)
	return withCause(envelope, err)
}

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInvalidInput, err, message)
}

func WrapNotFound(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeNotFound, err, message)
}

func WrapConflict(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeConflict, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInternal, err, message)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeDatabase, err, message)
}

func WrapDataProcessing(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeDataProcessing, err, message)
}

// requestID returns the request id of ctx, or a fresh uuid. The service has
// no tracing backend so the same id serves as trace id.
func requestID(ctx context.Context) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return uuid.New().String()
}

func withCause(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	if updated, werr := envelope.WithContext(map[string]interface{}{causeKey: err.Error()}); werr == nil {
		return updated
	}
	return envelope
}

// EnsureEnvelope returns err as an envelope. Plain errors become
// INTERNAL_ERROR with the text kept as the cause.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		envelope, _ := New(CodeInternal, "unexpected nil error").WithSeverity(errors.SeverityCritical)
		return envelope
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}
	envelope, _ := withCause(New(CodeInternal, "unexpected error"), err).WithSeverity(errors.SeverityHigh)
	return envelope
}

// EnsureCorrelationID stamps envelopes that have no correlation id with the
// request id of ctx.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	id := ""
	if ctx != nil {
		id = middleware.GetRequestID(ctx)
	}
	if id == "" {
		id = "fallback-" + errors.GenerateCorrelationID()
	}
	return envelope.WithCorrelationID(id)
}

// ResponseDetails merges envelope details and context for the response body.
// Details win on key clashes and the wrapped cause is left out.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}
	details := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for key, value := range envelope.Context {
		if key != causeKey {
			details[key] = value
		}
	}
	for key, value := range envelope.Details {
		details[key] = value
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// HTTPErrorDetail is the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse is the JSON shape of every error response.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError writes err as a JSON error response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope logs envelope, counts it and writes it as JSON.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	envelope = EnsureCorrelationID(envelope, ctx)
	status := HTTPStatusFromEnvelope(envelope)

	logHTTPError(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(middleware.EndpointPattern(r), envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      envelope.Code,
		Message:   envelope.Message,
		Details:   ResponseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}})
}

func logHTTPError(envelope *errors.ErrorEnvelope, status int) {
	log := observability.ServerLogger
	if log == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
		zap.String("request_id", envelope.CorrelationID),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch {
	case envelope.Severity == errors.SeverityCritical || envelope.Severity == errors.SeverityHigh:
		log.Error(envelope.Message, fields...)
	case envelope.Severity == errors.SeverityMedium || status >= http.StatusInternalServerError:
		log.Warn(envelope.Message, fields...)
	default:
		log.Info(envelope.Message, fields...)
	}
}
