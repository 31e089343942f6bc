package output

import (
	"fmt"
	"strings"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// MarkdownFormatter renders values as markdown tables.
type MarkdownFormatter struct{}

// FormatSearch renders a search as Markdown.
func (f *MarkdownFormatter) FormatSearch(view *SearchView) (string, error) {
	if view == nil || view.Record == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(view.Record.Query)))
	sb.WriteString(statusLine(view.Record) + "\n")

	if view.Data != nil {
		sb.WriteString("\n| # | Platform | Type | Profile | Confidence | URL |\n")
		sb.WriteString("|---|----------|------|---------|------------|-----|\n")
		for i, r := range view.Data.Results {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d%% | %s |\n",
				i+1,
				escapeMarkdownCell(r.Platform),
				escapeMarkdownCell(typeLabel(r.ResultType)),
				escapeMarkdownCell(handle(r)),
				r.ConfidencePercent(),
				escapeMarkdownCell(r.ProfileURL),
			))
		}
		sb.WriteString(renderSections(summarySections(view.Data), true))
	}

	if view.ReportPath != "" {
		sb.WriteString(fmt.Sprintf("\n**Report**: `%s`\n", view.ReportPath))
	}
	return sb.String(), nil
}

// FormatHistory renders search records as a Markdown table.
func (f *MarkdownFormatter) FormatHistory(records []core.SearchRecord) (string, error) {
	var sb strings.Builder
	sb.WriteString("| ID | Query | Status | Results | Created |\n")
	sb.WriteString("|----|-------|--------|---------|---------|\n")
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
			r.ID, escapeMarkdownCell(r.Query), r.Status, r.ResultsCount, r.CreatedAt.Format(timeLayout)))
	}
	return sb.String(), nil
}

// FormatProfile renders a user profile as a Markdown list.
func (f *MarkdownFormatter) FormatProfile(profile *core.UserProfile) (string, error) {
	if profile == nil {
		return "", nil
	}
	return fmt.Sprintf("- **ID**: %s\n- **Email**: %s\n- **Plan**: %s (%s)\n- **Credits**: %d\n",
		profile.ID, profile.Email, profile.Plan, tier(profile.Plan), profile.CreditsRemaining), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
