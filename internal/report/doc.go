// Package report renders scan results in multiple formats: a
// human-readable terminal summary, CSV for spreadsheet triage, JSON
// for tool integration, and Markdown for sharing. All writers
// implement the same Writer interface so output destinations can be
// combined with MultiWriter.
package report
