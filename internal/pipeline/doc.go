// Package pipeline orchestrates the scan as an ordered sequence of
// steps: crawl the site for document URLs, then retrieve, extract, and
// analyze each document. Steps share a ScanReport that accumulates
// results; per-document failures are recorded in the report rather
// than aborting the scan.
package pipeline
