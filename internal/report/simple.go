package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FlyMan2612/DocCrawler/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color is applied by the CLI layer for live status only
type SimpleWriter struct {
	baseWriter

	// verbose enables per-document detail in the output.
	verbose bool

	// titler title-cases section headings.
	titler cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		titler:     cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeDocuments(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         DOCSCOOP SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seed URL:       %s\n", report.Seed))
	sb.WriteString(fmt.Sprintf("Scan Date:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Max Depth:      %d\n", report.MaxDepth))
	sb.WriteString(fmt.Sprintf("Pages Crawled:  %d\n", report.PagesCrawled))

	if report.Anonymous {
		sb.WriteString("Transport:      Anonymous (Tor)\n")
	} else {
		sb.WriteString("Transport:      Direct\n")
	}

	if report.Interrupted {
		sb.WriteString("Status:         INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the document count summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.ScanReport) {
	w.writeSectionTitle(sb, "summary")

	sb.WriteString(fmt.Sprintf("  Documents found:     %d\n", len(report.DocumentURLs)))
	sb.WriteString(fmt.Sprintf("  Documents analyzed:  %d\n", report.AnalyzedCount()))
	sb.WriteString(fmt.Sprintf("  Flagged sensitive:   %d\n", report.SensitiveCount()))
	sb.WriteString("\n")
}

// writeDocuments writes per-document results, sensitive first.
func (w *SimpleWriter) writeDocuments(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Documents) == 0 {
		return
	}

	w.writeSectionTitle(sb, "documents")

	for _, d := range report.Documents {
		marker := " "
		if d.Sensitive {
			marker = "!"
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", marker, d.URL))

		if d.Error != "" {
			sb.WriteString(fmt.Sprintf("      Error: %s\n", d.Error))
			continue
		}
		if w.verbose && d.ContentHash != "" {
			sb.WriteString(fmt.Sprintf("      Hash: %s (%d bytes)\n", d.ContentHash, d.Size))
		}
		if d.Sensitive || w.verbose {
			if line := firstLine(d.Analysis); line != "" {
				sb.WriteString(fmt.Sprintf("      Analysis: %s\n", line))
			}
		}
	}
	sb.WriteString("\n")
}

// writeSectionTitle writes a title-cased section banner.
func (w *SimpleWriter) writeSectionTitle(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(w.titler.String(title))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
