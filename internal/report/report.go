// Package report renders check results as Markdown, HTML or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"dqengine/domain/anomaly"
	"dqengine/domain/validation"
)

// Format selects a renderer
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts json, markdown (or md) and html; empty means json
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ContentType is the HTTP content type of a rendered format
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Document is everything a rendered report shows. Either report may be nil.
type Document struct {
	RunID       string             `json:"run_id"`
	Suite       string             `json:"suite"`
	SuiteHash   string             `json:"suite_fingerprint,omitempty"`
	Table       string             `json:"table"`
	GeneratedAt time.Time          `json:"generated_at"`
	Anomalies   *anomaly.Report    `json:"anomalies,omitempty"`
	Validation  *validation.Report `json:"validation,omitempty"`
	Violations  []string           `json:"violations,omitempty"`
	Rejected    map[string]int     `json:"rejected_cells,omitempty"`
}

// Render dispatches to the renderer for f
func Render(doc Document, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(Markdown(doc)), nil
	case FormatHTML:
		return HTML(doc), nil
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	}
	return nil, fmt.Errorf("unknown report format %q", f)
}

// Markdown renders the document as GitHub-flavoured Markdown tables
func Markdown(doc Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Data quality report: %s\n\n", escape(doc.Table))
	if doc.Suite != "" {
		fmt.Fprintf(&b, "- Suite: %s", escape(doc.Suite))
		if doc.SuiteHash != "" {
			fmt.Fprintf(&b, " (`%s`)", doc.SuiteHash)
		}
		b.WriteString("\n")
	}
	if doc.RunID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", doc.RunID)
	}
	if !doc.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", doc.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n")

	if len(doc.Rejected) > 0 {
		writeRejected(&b, doc.Rejected)
	}
	if doc.Anomalies != nil {
		writeAnomalies(&b, doc.Anomalies)
	}
	if doc.Validation != nil {
		writeValidation(&b, doc.Validation)
	}

	if len(doc.Violations) > 0 {
		b.WriteString("## Gate\n\n**FAILED**\n\n")
		for _, v := range doc.Violations {
			fmt.Fprintf(&b, "- %s\n", escape(v))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeRejected(b *strings.Builder, rejected map[string]int) {
	b.WriteString("## Ingest\n\n")
	b.WriteString("Cells that could not be read as their column's type were checked as missing.\n\n")
	b.WriteString("| Column | Unreadable cells |\n|---|---:|\n")
	columns := make([]string, 0, len(rejected))
	for c := range rejected {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	for _, c := range columns {
		fmt.Fprintf(b, "| %s | %d |\n", escape(c), rejected[c])
	}
	b.WriteString("\n")
}

func writeAnomalies(b *strings.Builder, r *anomaly.Report) {
	b.WriteString("## Anomaly detection\n\n")
	fmt.Fprintf(b, "Health score: **%.0f/100** (%d anomalies in %d records)\n\n", r.HealthScore, r.TotalAnomalies, r.TotalRecords)

	b.WriteString("| Severity | Count |\n|---|---:|\n")
	for i := len(anomaly.AllSeverities) - 1; i >= 0; i-- {
		s := anomaly.AllSeverities[i]
		fmt.Fprintf(b, "| %s | %d |\n", s, r.AnomaliesBySeverity[s])
	}
	b.WriteString("\n")

	if len(r.Anomalies) == 0 {
		b.WriteString("No anomalies detected.\n\n")
		return
	}

	b.WriteString("| Severity | Type | Column | Description | Affected |\n|---|---|---|---|---:|\n")
	for _, a := range r.Anomalies {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %d |\n", a.Severity, a.Type, escape(a.Column), escape(a.Description), a.AffectedRecords)
	}
	b.WriteString("\n")
}

func writeValidation(b *strings.Builder, r *validation.Report) {
	b.WriteString("## Validation\n\n")
	fmt.Fprintf(b, "Quality score: **%.2f%%** (%d/%d rules passed)\n\n", r.QualityScore*100, r.PassedRules, r.TotalRules)

	if len(r.Results) == 0 {
		b.WriteString("No rules configured.\n\n")
		return
	}

	b.WriteString("| Rule | Type | Column | Severity | Status | Invalid | Message |\n|---|---|---|---|---|---:|---|\n")
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %d (%.2f%%) | %s |\n",
			escape(res.RuleName), res.RuleType, escape(res.Column), res.Severity, status,
			res.InvalidRecords, res.InvalidPercentage, escape(res.Message))
	}
	b.WriteString("\n")

	var sampled []validation.Result
	for _, res := range r.Failed() {
		if len(res.SampleInvalid) > 0 {
			sampled = append(sampled, res)
		}
	}
	if len(sampled) == 0 {
		return
	}
	b.WriteString("### Invalid samples\n\n")
	for _, res := range sampled {
		cells := make([]string, len(res.SampleInvalid))
		for i, v := range res.SampleInvalid {
			cells[i] = "`" + strings.ReplaceAll(v.String(), "`", "'") + "`"
		}
		fmt.Fprintf(b, "- %s: %s\n", escape(res.RuleName), strings.Join(cells, ", "))
	}
	b.WriteString("\n")
}

// HTML renders the Markdown report as a complete HTML page
func HTML(doc Document) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)

	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Data quality report: %s", doc.Table),
	}
	renderer := html.NewRenderer(opts)

	return markdown.ToHTML([]byte(Markdown(doc)), p, renderer)
}

// escape keeps cell text from breaking the table layout
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
