package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/core"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func sampleView() *SearchView {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	summary := &core.SearchSummary{
		TotalFound:     2,
		ExposureLevel:  core.ExposureHigh,
		PlatformsFound: []string{"GitHub", "LinkedIn"},
		KeyInsights:    []string{"Reuses the same handle", "Lists employer publicly"},
	}
	return &SearchView{
		Record: &core.SearchRecord{
			ID: "s1", UserID: "u1", Query: "Jane | Doe", QueryType: core.QueryTypeName,
			Status: core.SearchCompleted, ResultsCount: 2, Summary: summary, CreatedAt: created,
		},
		Data: &core.SearchData{
			Results: []core.ProfileResult{
				{ResultType: core.ResultTypeSocialMedia, Platform: "GitHub", Username: "jdoe", DisplayName: "Jane Doe", ProfileURL: "https://github.com/jdoe", FollowersCount: 1234, ConfidenceScore: 0.9},
				{ResultType: core.ResultTypeProfessional, Platform: "LinkedIn", DisplayName: "Jane Doe", ConfidenceScore: 1.4},
			},
			Summary: summary,
		},
		ReportPath: "/tmp/report.pdf",
	}
}

func TestTableFormatSearch(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatSearch(sampleView())
	require.NoError(t, err)
	require.Contains(t, rendered, "Search s1: completed (2 results)")
	require.Contains(t, rendered, "Jane Doe (@jdoe)")
	require.Contains(t, rendered, "90%")
	require.Contains(t, rendered, "100%")
	require.Contains(t, rendered, "1,234")
	require.Contains(t, rendered, "exposure level: HIGH")
	require.Contains(t, rendered, "2. Lists employer publicly")
	require.Contains(t, rendered, "Report saved to /tmp/report.pdf")
	require.Contains(t, rendered, "2 results on 2 platforms")
}

func TestMarkdownFormatSearch(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatSearch(sampleView())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "## Jane \\| Doe"))
	require.Contains(t, rendered, "| 1 | GitHub | social_media | Jane Doe (@jdoe) | 90% | https://github.com/jdoe |")
	require.Contains(t, rendered, "### Key Insights")
}

func TestJSONFormatSearch(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatSearch(sampleView())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Contains(t, decoded, "search")
	data := decoded["data"].(map[string]any)
	results := data["results"].([]any)
	require.Len(t, results, 2)
	require.Equal(t, "GitHub", results[0].(map[string]any)["platform"])
}

func TestFailedSearchHasNoFindings(t *testing.T) {
	view := &SearchView{Record: &core.SearchRecord{ID: "s2", Status: core.SearchFailed, ErrorMessage: "Rate limit exceeded. Please try again later."}}
	rendered, err := NewFormatter(FormatTable).FormatSearch(view)
	require.NoError(t, err)
	require.Contains(t, rendered, "Search s2: failed - Rate limit exceeded")
	require.NotContains(t, rendered, "Platform")
}

func TestFormatHistory(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []core.SearchRecord{
		{ID: "s2", Query: "John Roe", Status: core.SearchFailed, CreatedAt: created.Add(time.Hour)},
		{ID: "s1", Query: "Jane Doe", Status: core.SearchCompleted, ResultsCount: 5, CreatedAt: created},
	}

	table, err := NewFormatter(FormatTable).FormatHistory(records)
	require.NoError(t, err)
	require.Contains(t, table, "2 searches")
	require.NotContains(t, table, "SEARCHES")
	require.Less(t, strings.Index(table, "s2"), strings.Index(table, "s1"))

	md, err := NewFormatter(FormatMarkdown).FormatHistory(records)
	require.NoError(t, err)
	require.Contains(t, md, "| s1 | Jane Doe | completed | 5 | 2025-03-01 09:00 |")

	js, err := NewFormatter(FormatJSON).FormatHistory(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", js)
}

func TestFormatProfile(t *testing.T) {
	profile := &core.UserProfile{ID: "u1", Email: "jane@example.com", Plan: core.PlanPremiumBasic, CreditsRemaining: 19}
	rendered, err := NewFormatter(FormatTable).FormatProfile(profile)
	require.NoError(t, err)
	require.Contains(t, rendered, "premium_basic")
	require.Contains(t, rendered, "19")

	md, err := NewFormatter(FormatMarkdown).FormatProfile(profile)
	require.NoError(t, err)
	require.Contains(t, md, "- **Credits**: 19")
	require.Contains(t, md, "- **Plan**: premium_basic (paid)")

	free, err := NewFormatter(FormatTable).FormatProfile(&core.UserProfile{ID: "u2", Plan: core.PlanFree})
	require.NoError(t, err)
	require.Contains(t, free, "free")
	require.NotContains(t, free, "paid")
}

func TestUnknownResultTypeAndPlatformCount(t *testing.T) {
	view := &SearchView{
		Record: &core.SearchRecord{ID: "s3", Status: core.SearchCompleted, ResultsCount: 3},
		Data: &core.SearchData{Results: []core.ProfileResult{
			{ResultType: "forum", Platform: "GitHub", Username: "jdoe"},
			{ResultType: core.ResultTypeMention, Platform: " github ", Username: "jd"},
			{ResultType: core.ResultTypeProfessional, Platform: "LinkedIn"},
		}},
	}

	rendered, err := NewFormatter(FormatTable).FormatSearch(view)
	require.NoError(t, err)
	require.Contains(t, rendered, "3 results on 2 platforms")
	require.NotContains(t, rendered, "forum")

	md, err := NewFormatter(FormatMarkdown).FormatSearch(view)
	require.NoError(t, err)
	require.Contains(t, md, "| 1 | GitHub | other | @jdoe | 0% |  |")
}
