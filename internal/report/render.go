package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/metrics"
)

// Page geometry in millimetres (A4 portrait).
const (
	margin       = 20.0
	topCursor    = 20.0
	bottomLimit  = 258.0
	footerOffset = 10.0
	lineHeight   = 5.0
	cardHeader   = 12.0
)

type rgb struct{ r, g, b int }

var (
	colorBackground = rgb{15, 23, 42}
	colorAccent     = rgb{20, 184, 166}
	colorCard       = rgb{30, 41, 59}
	colorCardHeader = rgb{51, 65, 85}
	colorWhite      = rgb{255, 255, 255}
	colorBody       = rgb{200, 200, 200}
	colorBio        = rgb{180, 180, 180}
	colorMuted      = rgb{150, 150, 150}
	colorLink       = rgb{100, 150, 200}
	colorFooter     = rgb{100, 100, 100}
	colorDisclaimer = rgb{120, 120, 120}
	colorRule       = rgb{50, 150, 150}

	exposureColors = map[core.ExposureLevel]rgb{
		core.ExposureLow:    {34, 197, 94},
		core.ExposureMedium: {234, 179, 8},
		core.ExposureHigh:   {239, 68, 68},
	}
)

var disclaimer = [2]string{
	"DISCLAIMER: This report contains information gathered from publicly available sources only. All data is fictional",
	"and for demonstration purposes. Headhunter Trace does not access private or legally restricted information.",
}

// Renderer lays out reports. The zero value is usable.
type Renderer struct {
	Product    string
	Subtitle   string
	FilePrefix string
	Clock      func() time.Time
	// Compress deflates page streams.
	Compress bool
}

// New returns a renderer with the product defaults.
func New() *Renderer {
	return &Renderer{Product: defaultProduct, Subtitle: defaultSubtitle, FilePrefix: defaultFilePrefix, Compress: true}
}

// Render lays out query and data. It fails before drawing anything when data
// has no summary or no results list; an empty results list is valid.
func (r *Renderer) Render(query string, data *core.SearchData) (*Document, error) {
	doc, err := r.render(query, data)
	metrics.RecordReport(err == nil)
	return doc, err
}

func (r *Renderer) render(query string, data *core.SearchData) (*Document, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	now := r.now()
	doc := &Document{
		Filename:    Filename(r.filePrefix(), query, now),
		ReportID:    ReportID(now),
		GeneratedAt: now,
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(margin, topCursor, margin)
	pdf.SetTitle(r.product()+" - "+strings.TrimSpace(query), true)
	pdf.SetCreator(footerProduct, true)

	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	l.pageW, l.pageH = pdf.GetPageSize()
	pdf.SetHeaderFunc(l.paintBackground)

	pdf.AddPage()
	l.titleBand(r.product(), r.subtitle())
	l.metadata(query, now, doc.ReportID)
	l.summary(data.Summary)
	doc.CardPages = l.findings(data.Results)
	doc.Cards = len(doc.CardPages)
	doc.Footers = l.footers()
	doc.Pages = pdf.PageCount()

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	doc.Bytes = buf.Bytes()
	return doc, nil
}

func (r *Renderer) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func (r *Renderer) product() string {
	if r != nil && strings.TrimSpace(r.Product) != "" {
		return r.Product
	}
	return defaultProduct
}

func (r *Renderer) subtitle() string {
	if r != nil && strings.TrimSpace(r.Subtitle) != "" {
		return r.Subtitle
	}
	return defaultSubtitle
}

func (r *Renderer) filePrefix() string {
	if r != nil {
		return r.FilePrefix
	}
	return ""
}

// layout tracks the vertical cursor across pages.
type layout struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	pageW float64
	pageH float64
	y     float64
}

func (l *layout) paintBackground() {
	l.fill(colorBackground)
	l.pdf.Rect(0, 0, l.pageW, l.pageH, "F")
	l.y = topCursor
}

// ensure starts a new page when a block of height h would cross the bottom limit.
func (l *layout) ensure(h float64) {
	if l.y+h > bottomLimit {
		l.pdf.AddPage()
	}
}

func (l *layout) fill(c rgb)  { l.pdf.SetFillColor(c.r, c.g, c.b) }
func (l *layout) color(c rgb) { l.pdf.SetTextColor(c.r, c.g, c.b) }

func (l *layout) font(bold bool, size float64) {
	style := ""
	if bold {
		style = "B"
	}
	l.pdf.SetFont("Helvetica", style, size)
}

func (l *layout) contentWidth() float64 {
	return l.pageW - 2*margin
}

// text writes one line and advances the cursor by half the font size.
func (l *layout) text(s string, size float64, bold bool, c rgb) {
	advance := size * 0.5
	l.ensure(advance)
	l.font(bold, size)
	l.color(c)
	l.pdf.Text(margin, l.y, l.tr(s))
	l.y += advance
}

// wrapped writes s word-wrapped to the content width, paginating line by line.
func (l *layout) wrapped(s string, size float64, c rgb) {
	l.font(false, size)
	for _, line := range l.split(s, l.contentWidth()) {
		l.ensure(lineHeight)
		l.font(false, size)
		l.color(c)
		l.pdf.Text(margin, l.y, line)
		l.y += lineHeight
	}
}

func (l *layout) split(s string, width float64) []string {
	s = l.tr(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return l.pdf.SplitText(s, width)
}

func (l *layout) rule() {
	l.ensure(lineHeight)
	l.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	l.pdf.Line(margin, l.y, l.pageW-margin, l.y)
	l.y += lineHeight
}

func (l *layout) titleBand(product, subtitle string) {
	l.fill(colorAccent)
	l.pdf.Rect(0, 0, l.pageW, 40, "F")
	l.font(true, 24)
	l.color(colorWhite)
	l.pdf.Text(margin, 25, l.tr(product))
	l.font(false, 12)
	l.pdf.Text(margin, 33, l.tr(subtitle))
	l.y = 55
}

func (l *layout) metadata(query string, now time.Time, reportID string) {
	l.text("Subject: "+query, 14, true, colorWhite)
	l.y += 5
	l.text("Generated: "+now.Format("2006-01-02 15:04:05 MST"), 10, false, colorMuted)
	l.text("Report ID: "+reportID, 10, false, colorMuted)
	l.y += 10
	l.rule()
	l.y += 5
}

func (l *layout) summary(s *core.SearchSummary) {
	l.text("EXECUTIVE SUMMARY", 16, true, colorAccent)
	l.y += 5

	level := strings.ToUpper(strings.TrimSpace(string(s.ExposureLevel)))
	if level == "" {
		level = "UNKNOWN"
	}
	l.text("Digital Exposure Level: "+level, 12, true, exposureColor(s.ExposureLevel))
	l.y += 3
	l.text(fmt.Sprintf("Total Profiles Identified: %s", humanize.Comma(int64(s.TotalFound))), 11, false, colorWhite)
	l.text(fmt.Sprintf("Platforms Detected: %d", len(s.PlatformsFound)), 11, false, colorWhite)
	l.y += 5

	l.text("Platforms Found:", 11, true, colorWhite)
	l.y += 2
	l.wrapped(strings.Join(s.PlatformsFound, ", "), 10, colorBody)
	l.y += 5

	l.text("Key Insights:", 11, true, colorWhite)
	l.y += 2
	for i, insight := range s.KeyInsights {
		l.wrapped(fmt.Sprintf("%d. %s", i+1, insight), 10, colorBody)
		l.y += 2
	}

	l.y += 10
	l.rule()
	l.y += 10
}

// exposureColor keys the level to green, yellow or red; unknown levels are neutral.
func exposureColor(level core.ExposureLevel) rgb {
	level = core.ExposureLevel(strings.ToLower(strings.TrimSpace(string(level))))
	if !level.Valid() {
		return colorBody
	}
	return exposureColors[level]
}

func (l *layout) findings(results []core.ProfileResult) []int {
	l.text("DETAILED FINDINGS", 16, true, colorAccent)
	l.y += 10

	pages := make([]int, 0, len(results))
	for i, result := range results {
		pages = append(pages, l.card(i+1, result))
	}
	return pages
}

type cardLines struct {
	title    string
	conf     string
	name     string
	bio      []string
	location string
	stats    string
	url      string
}

func (l *layout) prepareCard(index int, r core.ProfileResult) cardLines {
	c := cardLines{
		title: fmt.Sprintf("%d. %s", index, strings.ToUpper(r.Platform)),
		conf:  fmt.Sprintf("Confidence: %d%%", r.ConfidencePercent()),
		name:  fmt.Sprintf("%s (@%s)", r.DisplayName, r.Username),
		url:   "URL: " + r.ProfileURL,
	}
	if strings.TrimSpace(r.Bio) != "" {
		l.font(false, 10)
		c.bio = l.split("Bio: "+r.Bio, l.contentWidth())
		if len(c.bio) > 2 {
			c.bio = c.bio[:2]
		}
	}
	if strings.TrimSpace(r.Location) != "" {
		c.location = "Location: " + r.Location
	}
	c.stats = Stats(r.FollowersCount, r.PostsCount)
	return c
}

// Stats joins the non-zero follower and post counts with " | ".
func Stats(followers, posts int64) string {
	parts := make([]string, 0, 2)
	if followers > 0 {
		parts = append(parts, "Followers: "+humanize.Comma(followers))
	}
	if posts > 0 {
		parts = append(parts, "Posts: "+humanize.Comma(posts))
	}
	return strings.Join(parts, " | ")
}

func (c cardLines) height() float64 {
	h := 15.0 + 6.0 // header block and name line
	h += float64(len(c.bio)) * lineHeight
	if c.location != "" {
		h += lineHeight
	}
	if c.stats != "" {
		h += lineHeight
	}
	return h + lineHeight + 5 // url line and padding
}

// card draws one result and returns its page. A card never splits across pages.
func (l *layout) card(index int, r core.ProfileResult) int {
	c := l.prepareCard(index, r)
	h := c.height()
	l.ensure(h)
	page := l.pdf.PageNo()

	top := l.y - 5
	l.fill(colorCard)
	l.pdf.RoundedRect(margin-5, top, l.contentWidth()+10, h, 3, "1234", "F")
	l.fill(colorCardHeader)
	l.pdf.RoundedRect(margin-5, top, l.contentWidth()+10, cardHeader, 3, "1234", "F")

	l.font(true, 11)
	l.color(colorAccent)
	l.pdf.Text(margin, l.y+3, l.tr(c.title))
	l.font(true, 9)
	l.color(colorBody)
	conf := l.tr(c.conf)
	l.pdf.Text(l.pageW-margin-l.pdf.GetStringWidth(conf), l.y+3, conf)
	l.y += 15

	l.font(true, 10)
	l.color(colorWhite)
	l.pdf.Text(margin, l.y, l.tr(c.name))
	l.y += 6

	l.font(false, 10)
	if len(c.bio) > 0 {
		l.color(colorBio)
		for _, line := range c.bio {
			l.pdf.Text(margin, l.y, line)
			l.y += lineHeight
		}
	}
	l.color(colorMuted)
	if c.location != "" {
		l.pdf.Text(margin, l.y, l.tr(c.location))
		l.y += lineHeight
	}
	if c.stats != "" {
		l.pdf.Text(margin, l.y, l.tr(c.stats))
		l.y += lineHeight
	}

	l.color(colorLink)
	url := l.tr(c.url)
	l.pdf.Text(margin, l.y, url)
	if target := strings.TrimSpace(r.ProfileURL); target != "" {
		l.pdf.LinkString(margin, l.y-lineHeight+1, l.pdf.GetStringWidth(url), lineHeight, target)
	}
	l.y += lineHeight + 10
	return page
}

// footers stamps "Page i of P" on every page and the disclaimer band on the last.
func (l *layout) footers() []string {
	total := l.pdf.PageCount()
	out := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		l.pdf.SetPage(i)
		if i == total {
			l.disclaimer()
		}
		footer := fmt.Sprintf("%s - Confidential Report | Page %d of %d", footerProduct, i, total)
		l.font(false, 8)
		l.color(colorFooter)
		l.centered(footer, l.pageH-footerOffset)
		out = append(out, footer)
	}
	return out
}

func (l *layout) disclaimer() {
	y := l.pageH - 30
	l.fill(colorCard)
	l.pdf.Rect(0, y-5, l.pageW, 25, "F")
	l.font(false, 7)
	l.color(colorDisclaimer)
	l.centered(disclaimer[0], y)
	l.centered(disclaimer[1], y+4)
}

func (l *layout) centered(s string, y float64) {
	s = l.tr(s)
	l.pdf.Text((l.pageW-l.pdf.GetStringWidth(s))/2, y, s)
}
