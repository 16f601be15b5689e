package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/FlyMan2612/DocCrawler/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeDocuments(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("DocScoop Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + report.Seed + "`"},
			{"Scan Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Max Depth", strconv.Itoa(report.MaxDepth)},
			{"Pages Crawled", strconv.Itoa(report.PagesCrawled)},
			{"Transport", transportText(report)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func transportText(report *model.ScanReport) string {
	if report.Anonymous {
		return "🧅 Anonymous (Tor)"
	}
	return "Direct"
}

func statusText(report *model.ScanReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the document count summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Summary")
	md.PlainText("")

	analyzed := report.AnalyzedCount()
	sensitive := report.SensitiveCount()

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Documents found", strconv.Itoa(len(report.DocumentURLs))},
			{"Documents analyzed", strconv.Itoa(analyzed)},
			{"Flagged sensitive", strconv.Itoa(sensitive)},
		},
	})
	md.PlainText("")

	if analyzed > 0 {
		w.writePieChart(md, analyzed, sensitive)
	}

	switch {
	case sensitive > 0:
		md.Cautionf("%d document(s) appear to contain sensitive material and should be reviewed.", sensitive)
	case analyzed > 0:
		md.Tip("No documents were flagged as sensitive.")
	default:
		md.Note("No documents reached the analysis step.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the verdict split.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, analyzed, sensitive int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Analysis Verdicts"),
		piechart.WithShowData(true),
	)

	if sensitive > 0 {
		chart.LabelAndIntValue("Sensitive", uint64(sensitive))
	}
	if clean := analyzed - sensitive; clean > 0 {
		chart.LabelAndIntValue("Not Sensitive", uint64(clean))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDocuments writes the per-document results table plus expandable
// analysis details for flagged documents.
func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Documents")
	md.PlainText("")

	if len(report.Documents) == 0 {
		md.PlainText("No documents were retrieved.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Documents))
	for i, d := range report.Documents {
		rows[i] = []string{
			d.URL,
			verdictCell(d),
			truncateString(firstLine(d.Analysis), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Verdict", "Analysis"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, d := range report.Documents {
		if d.Sensitive && d.Analysis != "" {
			md.Details(d.URL, d.Analysis)
		}
	}
	md.PlainText("")
}

func verdictCell(d *model.DocumentResult) string {
	switch {
	case d.Error != "":
		return "❌ Error"
	case !d.Analyzed:
		return "⏭️ Skipped"
	case d.Sensitive:
		return "🔴 Sensitive"
	default:
		return "🟢 Clean"
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [DocScoop](https://github.com/FlyMan2612/DocCrawler)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
