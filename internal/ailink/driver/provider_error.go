package driver

import (
	"fmt"
	"net/http"
)

// ProviderError is a non-2xx answer from a provider. RawResponse is the
// response body as received; request headers, and so API keys, are never
// copied into it.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	switch {
	case e == nil:
		return "provider error"
	case e.StatusCode > 0:
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	}
}

// RateLimited reports a quota refusal (HTTP 429).
func (e *ProviderError) RateLimited() bool {
	return e != nil && e.StatusCode == http.StatusTooManyRequests
}
