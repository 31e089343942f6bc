// Package analysis invokes the OSINT analysis function, either over HTTP
// against a deployed endpoint or in-process through the ailink service.
package analysis

import (
	"errors"
	"fmt"

	"github.com/headhuntertrace/headhunter/internal/core"
)

var (
	// ErrRateLimited is returned when the function answers 429.
	ErrRateLimited = errors.New("analysis function rate limited")
	// ErrRemote is returned for non-2xx answers and explicit success:false payloads.
	ErrRemote = errors.New("analysis function failed")
	// ErrMalformed is returned when the answer cannot be decoded into valid search data.
	ErrMalformed = errors.New("analysis function returned malformed data")
)

// Request is the function request body.
type Request struct {
	Query    string `json:"query"`
	SearchID string `json:"searchId"`
	UserID   string `json:"userId"`
}

// Response is the function response envelope. Success responses carry Data,
// failures carry Error.
type Response struct {
	Success  bool             `json:"success"`
	Data     *core.SearchData `json:"data,omitempty"`
	SearchID string           `json:"searchId,omitempty"`
	Query    string           `json:"query,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Error is a classified function failure. Kind is one of the package sentinels.
type Error struct {
	Kind    error
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "analysis error"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

// RateLimited reports whether the function refused the call for rate limiting.
func (e *Error) RateLimited() bool {
	return e != nil && errors.Is(e.Kind, ErrRateLimited)
}
