// Package model defines the data structures shared across the scanner:
// scan reports, per-document results, and classification outcomes.
//
// The model package has no dependencies on other internal packages so
// that every layer (crawler, pipeline, report, database) can exchange
// data without import cycles.
package model
