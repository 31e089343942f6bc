package core

import (
	"errors"
	"math"
	"strings"
)

// ResultType classifies a discovered profile.
type ResultType string

const (
	ResultTypeSocialMedia   ResultType = "social_media"
	ResultTypeProfessional  ResultType = "professional"
	ResultTypeMention       ResultType = "mention"
	ResultTypeUsernameMatch ResultType = "username_match"
)

// Valid reports whether the result type is one of the known values.
func (t ResultType) Valid() bool {
	switch t {
	case ResultTypeSocialMedia, ResultTypeProfessional, ResultTypeMention, ResultTypeUsernameMatch:
		return true
	default:
		return false
	}
}

// ExposureLevel is the coarse public-footprint rating of a subject.
type ExposureLevel string

const (
	ExposureLow    ExposureLevel = "low"
	ExposureMedium ExposureLevel = "medium"
	ExposureHigh   ExposureLevel = "high"
)

// Valid reports whether the exposure level is one of the known values.
func (e ExposureLevel) Valid() bool {
	switch e {
	case ExposureLow, ExposureMedium, ExposureHigh:
		return true
	default:
		return false
	}
}

var (
	// ErrMissingSummary is returned when search data carries no summary block.
	ErrMissingSummary = errors.New("search data is missing summary")
	// ErrMissingResults is returned when search data carries no results list.
	ErrMissingResults = errors.New("search data is missing results")
	// ErrNoCredits is returned when a user has no search credits left.
	ErrNoCredits = errors.New("no credits remaining")
)

// ProfileResult is a single discovered profile.
type ProfileResult struct {
	ResultType      ResultType     `json:"result_type"`
	Platform        string         `json:"platform"`
	ProfileURL      string         `json:"profile_url"`
	Username        string         `json:"username"`
	DisplayName     string         `json:"display_name"`
	Bio             string         `json:"bio"`
	Location        string         `json:"location"`
	FollowersCount  int64          `json:"followers_count"`
	PostsCount      int64          `json:"posts_count"`
	ConfidenceScore float64        `json:"confidence_score"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// PlatformKey returns the platform label normalized for case-insensitive lookups.
func (r ProfileResult) PlatformKey() string {
	return strings.ToLower(strings.TrimSpace(r.Platform))
}

// ConfidencePercent returns the confidence score as a whole percentage.
func (r ProfileResult) ConfidencePercent() int {
	return ConfidencePercent(r.ConfidenceScore)
}

// ConfidencePercent converts a [0,1] score to round(score*100), clamped to [0,100].
// Out-of-range scores come from an unvalidated upstream and are clamped, NaN maps to 0.
func ConfidencePercent(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	pct := math.Round(score * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}

// SearchSummary is the aggregate block produced alongside the results.
//
// TotalFound is reported by the upstream and is not reconciled with len(Results).
type SearchSummary struct {
	TotalFound     int           `json:"total_found"`
	ExposureLevel  ExposureLevel `json:"exposure_level"`
	PlatformsFound []string      `json:"platforms_found"`
	KeyInsights    []string      `json:"key_insights"`
}

// SearchData is the payload returned by the analysis function.
type SearchData struct {
	Results []ProfileResult `json:"results"`
	Summary *SearchSummary  `json:"summary"`
}

// Validate checks that both top-level blocks are present. An empty (non-null)
// results list is valid.
func (d *SearchData) Validate() error {
	if d == nil {
		return ErrMissingSummary
	}
	if d.Summary == nil {
		return ErrMissingSummary
	}
	if d.Results == nil {
		return ErrMissingResults
	}
	return nil
}
