package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanReport accumulates the result of one complete scan: the crawl
// statistics plus one DocumentResult per retrieved document.
//
// A report is owned by the caller orchestrating the scan. Pipeline
// steps mutate it in sequence; it is not safe for concurrent mutation
// without external synchronization.
type ScanReport struct {
	// ID uniquely identifies this scan run for persistence.
	ID string `json:"id"`

	// Seed is the starting URL of the crawl.
	Seed string `json:"seed"`

	// MaxDepth is the crawl depth limit used for this scan.
	MaxDepth int `json:"maxDepth"`

	// Anonymous reports whether the scan ran through the anonymizing
	// transport. False when the transport degraded to direct mode.
	Anonymous bool `json:"anonymous"`

	// StartedAt and FinishedAt bound the scan wall time.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// PagesCrawled is the number of URLs fetched during traversal.
	PagesCrawled int `json:"pagesCrawled"`

	// DocumentURLs is the full document set discovered by the crawl,
	// including documents whose retrieval later failed.
	DocumentURLs []string `json:"documentURLs"`

	// Documents holds the per-document retrieval and analysis results.
	Documents []*DocumentResult `json:"documents"`

	// Interrupted is set when the scan was cancelled before finishing.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewScanReport creates an empty report for the given seed URL.
func NewScanReport(seed string, maxDepth int) *ScanReport {
	return &ScanReport{
		ID:        uuid.NewString(),
		Seed:      seed,
		MaxDepth:  maxDepth,
		StartedAt: time.Now(),
	}
}

// SensitiveCount returns the number of documents flagged sensitive.
func (r *ScanReport) SensitiveCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.Sensitive {
			n++
		}
	}
	return n
}

// AnalyzedCount returns the number of documents that reached the
// analysis step. Only these appear in the persisted CSV output.
func (r *ScanReport) AnalyzedCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.Analyzed {
			n++
		}
	}
	return n
}
