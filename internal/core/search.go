package core

import (
	"fmt"
	"time"
)

// SearchStatus is the lifecycle state of a persisted search.
//
//	processing ──► completed
//	     │
//	     └───────► failed
//
// completed and failed are terminal.
type SearchStatus string

const (
	SearchProcessing SearchStatus = "processing"
	SearchCompleted  SearchStatus = "completed"
	SearchFailed     SearchStatus = "failed"
)

// QueryTypeName is the only query classification currently produced.
const QueryTypeName = "name"

// ParseSearchStatus converts a raw string to a SearchStatus.
func ParseSearchStatus(s string) (SearchStatus, error) {
	st := SearchStatus(s)
	switch st {
	case SearchProcessing, SearchCompleted, SearchFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown search status %q", s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s SearchStatus) IsTerminal() bool {
	return s == SearchCompleted || s == SearchFailed
}

// CanTransition reports whether moving from -> to is permitted.
func CanTransition(from, to SearchStatus) bool {
	return from == SearchProcessing && (to == SearchCompleted || to == SearchFailed)
}

// SearchRecord is the persisted row for one search invocation.
type SearchRecord struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Query        string         `json:"query"`
	QueryType    string         `json:"query_type"`
	Status       SearchStatus   `json:"status"`
	ResultsCount int            `json:"results_count"`
	Summary      *SearchSummary `json:"summary,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// StoredResult is a persisted ProfileResult tagged with its search and owner.
type StoredResult struct {
	ID        string    `json:"id"`
	SearchID  string    `json:"search_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ProfileResult
}

// SearchData rebuilds the analysis payload for a completed record from its stored rows.
func (r *SearchRecord) SearchData(results []StoredResult) *SearchData {
	data := &SearchData{Results: make([]ProfileResult, 0, len(results))}
	if r != nil && r.Summary != nil {
		summary := *r.Summary
		data.Summary = &summary
	}
	for _, row := range results {
		data.Results = append(data.Results, row.ProfileResult)
	}
	return data
}
