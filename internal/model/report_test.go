package model

import (
	"testing"
	"time"
)

// TestNewScanReport tests report initialization.
func TestNewScanReport(t *testing.T) {
	t.Parallel()

	before := time.Now()
	r := NewScanReport("https://example.com", 3)

	if r.ID == "" {
		t.Error("expected a non-empty scan ID")
	}
	if r.Seed != "https://example.com" {
		t.Errorf("Seed = %q, expected the seed URL", r.Seed)
	}
	if r.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, expected 3", r.MaxDepth)
	}
	if r.StartedAt.Before(before) {
		t.Error("StartedAt should be set at construction")
	}
	if r.Anonymous || r.Interrupted {
		t.Error("flags should start false")
	}

	other := NewScanReport("https://example.com", 3)
	if other.ID == r.ID {
		t.Error("scan IDs must be unique per run")
	}
}

// TestReportCounts tests the sensitive and analyzed counters.
func TestReportCounts(t *testing.T) {
	t.Parallel()

	r := NewScanReport("https://example.com", 1)
	r.Documents = []*DocumentResult{
		{URL: "https://example.com/a.pdf", Analyzed: true, Sensitive: true},
		{URL: "https://example.com/b.pdf", Analyzed: true, Sensitive: false},
		{URL: "https://example.com/c.pdf", Error: "download failed"},
	}

	if got := r.SensitiveCount(); got != 1 {
		t.Errorf("SensitiveCount() = %d, expected 1", got)
	}
	if got := r.AnalyzedCount(); got != 2 {
		t.Errorf("AnalyzedCount() = %d, expected 2", got)
	}
}

// TestReportCountsEmpty tests the counters on a fresh report.
func TestReportCountsEmpty(t *testing.T) {
	t.Parallel()

	r := NewScanReport("https://example.com", 0)
	if r.SensitiveCount() != 0 || r.AnalyzedCount() != 0 {
		t.Error("empty report should count zero")
	}
}

// TestDocumentDownloaded tests the download success predicate.
func TestDocumentDownloaded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  DocumentResult
		want bool
	}{
		{"downloaded", DocumentResult{LocalPath: "/tmp/x.pdf", ContentHash: "ab"}, true},
		{"failed before download", DocumentResult{Error: "connection refused"}, false},
		{"empty result", DocumentResult{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.doc.Downloaded(); got != tt.want {
				t.Errorf("Downloaded() = %v, expected %v", got, tt.want)
			}
		})
	}
}
