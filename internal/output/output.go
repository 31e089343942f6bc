package output

import (
	"fmt"
	"strings"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// SearchView is one search as shown to the user: the record, its data when
// the search completed, and the saved report path if any.
type SearchView struct {
	Record     *core.SearchRecord `json:"search"`
	Data       *core.SearchData   `json:"data,omitempty"`
	ReportPath string             `json:"report_path,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Formatter renders searches.
type Formatter interface {
	FormatSearch(view *SearchView) (string, error)
	FormatHistory(records []core.SearchRecord) (string, error)
	FormatProfile(profile *core.UserProfile) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

type section struct {
	Title string
	Lines []string
}

// summarySections lists the executive summary blocks shown under the findings.
func summarySections(data *core.SearchData) []section {
	if data == nil || data.Summary == nil {
		return nil
	}
	s := data.Summary

	level := strings.ToUpper(string(s.ExposureLevel))
	if level == "" {
		level = "UNKNOWN"
	}
	overview := section{Title: "Summary", Lines: []string{
		fmt.Sprintf("exposure level: %s", level),
		fmt.Sprintf("profiles identified: %d", s.TotalFound),
		fmt.Sprintf("platforms detected: %d", len(s.PlatformsFound)),
	}}
	if len(s.PlatformsFound) > 0 {
		overview.Lines = append(overview.Lines, "platforms: "+strings.Join(s.PlatformsFound, ", "))
	}

	sections := []section{overview}
	if len(s.KeyInsights) > 0 {
		insights := section{Title: "Key Insights"}
		for i, insight := range s.KeyInsights {
			insights.Lines = append(insights.Lines, fmt.Sprintf("%d. %s", i+1, insight))
		}
		sections = append(sections, insights)
	}
	return sections
}

func renderSections(sections []section, markdown bool) string {
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, sec := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if markdown {
			sb.WriteString(fmt.Sprintf("\n\n### %s\n", sec.Title))
			for _, line := range sec.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n\n%s:\n", sec.Title))
			for _, line := range sec.Lines {
				sb.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return sb.String()
}

func handle(r core.ProfileResult) string {
	name := strings.TrimSpace(r.DisplayName)
	user := strings.TrimSpace(r.Username)
	switch {
	case name != "" && user != "":
		return fmt.Sprintf("%s (@%s)", name, user)
	case user != "":
		return "@" + user
	default:
		return name
	}
}

// typeLabel shows result types outside the known set as "other".
func typeLabel(t core.ResultType) string {
	if !t.Valid() {
		return "other"
	}
	return string(t)
}

// countPlatforms counts distinct platforms, ignoring case and blanks.
func countPlatforms(results []core.ProfileResult) int {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if key := r.PlatformKey(); key != "" {
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}

func tier(plan core.Plan) string {
	if plan.IsPaid() {
		return "paid"
	}
	return "free"
}

func statusLine(record *core.SearchRecord) string {
	if record == nil {
		return ""
	}
	line := fmt.Sprintf("Search %s: %s", record.ID, record.Status)
	if record.Status == core.SearchCompleted {
		line += fmt.Sprintf(" (%d results)", record.ResultsCount)
	}
	if record.ErrorMessage != "" {
		line += " - " + record.ErrorMessage
	}
	return line
}

const timeLayout = "2006-01-02 15:04"
