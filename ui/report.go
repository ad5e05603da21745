package ui

import (
	"fmt"
	"strings"

	"promptlab/app"
	"promptlab/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// BuildReportMarkdown renders a run header and its summary statistics as a
// markdown document.
func BuildReportMarkdown(meta ports.RunMeta, summary *app.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Experiment run %s\n\n", meta.ID)
	fmt.Fprintf(&b, "- Policy: `%s`\n", meta.Policy)
	fmt.Fprintf(&b, "- Seed: %d\n", meta.Seed)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", meta.Fingerprint)
	fmt.Fprintf(&b, "- Conditions: %d (%d failed)\n", meta.Conditions, meta.Failed)
	fmt.Fprintf(&b, "- Created: %s\n\n", meta.CreatedAt.Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "## Output\n\n")
	fmt.Fprintf(&b, "%d records. Output length: mean %.1f, median %.1f, sd %.1f, range [%.0f, %.0f].\n\n",
		summary.Records,
		summary.OutputLength.Mean, summary.OutputLength.Median, summary.OutputLength.StdDev,
		summary.OutputLength.Min, summary.OutputLength.Max)

	if len(summary.Numeric) > 0 {
		fmt.Fprintf(&b, "## Numeric columns\n\n")
		fmt.Fprintf(&b, "| column | n | mean | median | sd | min | max |\n")
		fmt.Fprintf(&b, "|---|---|---|---|---|---|---|\n")
		for _, col := range summary.Numeric {
			fmt.Fprintf(&b, "| `%s` | %d | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
				col.Column, col.Count, col.Mean, col.Median, col.StdDev, col.Min, col.Max)
		}
		b.WriteString("\n")
	}

	if len(summary.Correlations) > 0 {
		fmt.Fprintf(&b, "## Hyperparameter vs output length\n\n")
		fmt.Fprintf(&b, "| hyperparameter | Pearson r |\n")
		fmt.Fprintf(&b, "|---|---|\n")
		for _, corr := range summary.Correlations {
			fmt.Fprintf(&b, "| `%s` | %.3f |\n", corr.Column, corr.Correlation)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderMarkdown converts a markdown document to an HTML fragment.
func RenderMarkdown(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
