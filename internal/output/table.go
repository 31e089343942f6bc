package output

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// TableFormatter renders values as ASCII tables.
type TableFormatter struct{}

// FormatSearch renders the findings of a search as a table followed by the summary.
func (f *TableFormatter) FormatSearch(view *SearchView) (string, error) {
	if view == nil || view.Record == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(statusLine(view.Record))
	sb.WriteString("\n")

	if view.Data != nil {
		t := newTable()
		t.AppendHeader(table.Row{"#", "Platform", "Type", "Profile", "Confidence", "Followers", "URL"})
		for i, r := range view.Data.Results {
			t.AppendRow(table.Row{
				i + 1,
				r.Platform,
				typeLabel(r.ResultType),
				handle(r),
				fmt.Sprintf("%d%%", r.ConfidencePercent()),
				humanize.Comma(r.FollowersCount),
				r.ProfileURL,
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "", fmt.Sprintf("%d results on %d platforms", len(view.Data.Results), countPlatforms(view.Data.Results))})
		sb.WriteString(t.Render())
		sb.WriteString(renderSections(summarySections(view.Data), false))
	}

	if view.ReportPath != "" {
		sb.WriteString(fmt.Sprintf("\nReport saved to %s\n", view.ReportPath))
	}
	if view.Message != "" {
		sb.WriteString("\n" + view.Message + "\n")
	}
	return sb.String(), nil
}

// FormatHistory renders search records newest first as given.
func (f *TableFormatter) FormatHistory(records []core.SearchRecord) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Query", "Status", "Results", "Created"})
	for _, r := range records {
		t.AppendRow(table.Row{r.ID, r.Query, string(r.Status), r.ResultsCount, r.CreatedAt.Format(timeLayout)})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d searches", len(records))})
	return t.Render(), nil
}

// FormatProfile renders a user profile as a two-column table.
func (f *TableFormatter) FormatProfile(profile *core.UserProfile) (string, error) {
	if profile == nil {
		return "", nil
	}
	t := newTable()
	t.AppendRows([]table.Row{
		{"ID", profile.ID},
		{"Email", profile.Email},
		{"Plan", string(profile.Plan)},
		{"Tier", tier(profile.Plan)},
		{"Credits", profile.CreditsRemaining},
		{"Created", profile.CreatedAt.Format(timeLayout)},
	})
	return t.Render(), nil
}

// newTable returns a rounded table that keeps footer text as written.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}
