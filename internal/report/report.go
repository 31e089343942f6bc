// Package report lays out search data as a paginated PDF investigation report.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// ErrInvalidInput is returned before any drawing when the search data is unusable.
var ErrInvalidInput = errors.New("invalid report input")

const (
	defaultProduct    = "HEADHUNTER TRACE"
	defaultSubtitle   = "Digital Footprint Investigation Report"
	defaultFilePrefix = "HeadhunterTrace"
	footerProduct     = "Headhunter Trace"
)

// Document is a rendered report.
type Document struct {
	Filename    string
	ReportID    string
	GeneratedAt time.Time
	Pages       int
	Cards       int
	// CardPages holds the page number each result card was drawn on.
	CardPages []int
	Footers   []string
	Bytes     []byte
}

// WriteTo writes the PDF bytes to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d == nil {
		return 0, errors.New("document is nil")
	}
	n, err := w.Write(d.Bytes)
	return int64(n), err
}

// Save writes the document into dir under its filename and returns the path.
func (d *Document) Save(dir string) (string, error) {
	if d == nil {
		return "", errors.New("document is nil")
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, d.Filename)
	if err := os.WriteFile(path, d.Bytes, 0o600); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ReportID encodes t as HT-<unix millis in base 36, upper case>.
func ReportID(t time.Time) string {
	return "HT-" + strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
}

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	pathSeparators = strings.NewReplacer("/", "", "\\", "")
)

// Filename builds <prefix>_Report_<query>_<unix millis>.pdf. Whitespace runs in
// the query become underscores and path separators are dropped.
func Filename(prefix, query string, t time.Time) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultFilePrefix
	}
	subject := pathSeparators.Replace(strings.TrimSpace(query))
	subject = whitespaceRun.ReplaceAllString(subject, "_")
	return fmt.Sprintf("%s_Report_%s_%d.pdf", prefix, subject, t.UnixMilli())
}

func validate(data *core.SearchData) error {
	if data == nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, core.ErrMissingSummary)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
