package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FlyMan2612/DocCrawler/internal/model"
)

// sampleReport builds a populated report for writer tests.
func sampleReport() *model.ScanReport {
	r := model.NewScanReport("https://example.com", 2)
	r.StartedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(90 * time.Second)
	r.PagesCrawled = 12
	r.DocumentURLs = []string{
		"https://example.com/pay.csv",
		"https://example.com/brochure.pdf",
		"https://example.com/broken.doc",
	}
	r.Documents = []*model.DocumentResult{
		{
			URL:         "https://example.com/pay.csv",
			ContentHash: "abc123",
			Size:        2048,
			Analyzed:    true,
			Sensitive:   true,
			Analysis:    "Yes, contains salary data.\nPer-employee compensation figures.",
		},
		{
			URL:         "https://example.com/brochure.pdf",
			ContentHash: "def456",
			Size:        512,
			Analyzed:    true,
			Analysis:    "No, public marketing material.",
		},
		{
			URL:   "https://example.com/broken.doc",
			Error: "download failed: status 404",
		},
	}
	return r
}

// TestSimpleWriter tests the human-readable terminal format.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("standard output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(sampleReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("byte count = %d, expected %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"DOCSCOOP SCAN REPORT",
			"https://example.com",
			"Transport:      Direct",
			"Status:         Complete",
			"Documents found:     3",
			"Documents analyzed:  2",
			"Flagged sensitive:   1",
			"[!] https://example.com/pay.csv",
			"Yes, contains salary data.",
			"Error: download failed: status 404",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("verbose adds hashes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "Hash: abc123 (2048 bytes)") {
			t.Errorf("verbose output missing hash line:\n%s", buf.String())
		}
	})

	t.Run("interrupted and anonymous flags", func(t *testing.T) {
		t.Parallel()

		r := sampleReport()
		r.Anonymous = true
		r.Interrupted = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "Anonymous (Tor)") {
			t.Errorf("output missing anonymous transport:\n%s", out)
		}
		if !strings.Contains(out, "INTERRUPTED") {
			t.Errorf("output missing interrupted status:\n%s", out)
		}
	})
}

// TestCSVWriter tests the spreadsheet export format.
func TestCSVWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewCSVWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	// Header plus the two analyzed documents; the failed one is skipped.
	if len(records) != 3 {
		t.Fatalf("got %d records, expected 3: %v", len(records), records)
	}
	if records[0][0] != "url" || records[0][1] != "is_sensitive" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][0] != "https://example.com/pay.csv" || records[1][1] != "true" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[2][1] != "false" {
		t.Errorf("unexpected second row: %v", records[2])
	}
}

// TestJSONWriter tests JSON serialization round trip.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(sampleReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("byte count = %d, expected %d", n, buf.Len())
		}

		var decoded model.ScanReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Seed != "https://example.com" {
			t.Errorf("Seed = %q after round trip", decoded.Seed)
		}
		if len(decoded.Documents) != 3 {
			t.Errorf("got %d documents after round trip", len(decoded.Documents))
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("pretty output should be indented")
		}
	})
}

// TestMarkdownWriter tests the Markdown document format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# DocScoop Scan Report",
		"## Summary",
		"## Documents",
		"https://example.com/pay.csv",
		"Sensitive",
		"mermaid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestMarkdownWriterEmptyReport tests the no-documents path.
func TestMarkdownWriterEmptyReport(t *testing.T) {
	t.Parallel()

	r := model.NewScanReport("https://example.com", 1)

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No documents were retrieved.") {
		t.Errorf("output missing empty notice:\n%s", buf.String())
	}
}

// failingWriter always returns an error, for MultiWriter tests.
type failingWriter struct{}

func (failingWriter) Write(*model.ScanReport) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests fan-out across writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all and sums bytes", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

		n, err := mw.Write(sampleReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("byte count = %d, expected %d", n, a.Len()+b.Len())
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("both writers should receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&after))

		if _, err := mw.Write(sampleReport()); err == nil {
			t.Fatal("expected error, got nil")
		}
		if after.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}

// TestTruncateString tests cell truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short string unchanged", "abc", 10, "abc"},
		{"exact length unchanged", "abcde", 5, "abcde"},
		{"long string gets ellipsis", "abcdefghij", 8, "abcde..."},
		{"tiny limit hard cut", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, expected %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}
