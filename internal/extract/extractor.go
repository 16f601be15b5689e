package extract

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// maxReadSize caps how much of a document is read during extraction.
// The analysis stage samples only the first few thousand characters,
// so reading a multi-gigabyte spreadsheet fully would be wasted work.
const maxReadSize = 4 * 1024 * 1024

// Extractor extracts plain text from local document files.
//
// Only text-native formats (plain text, CSV) are decoded here. Binary
// office formats and PDF would each need a dedicated parsing library;
// per the collaborator contract they return an empty string instead of
// an error, and the caller records the document as unanalyzable.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns the plain text content of the file at path, or an
// empty string for unsupported or unreadable input. It never returns
// an error: a document that cannot be read is simply not analyzable,
// which is a per-document outcome, not a scan failure.
func (e *Extractor) Extract(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		e.logger.Warn("failed to detect document type", "path", path, "error", err)
		return ""
	}

	switch {
	case mtype.Is("text/csv"):
		return e.extractCSV(path)
	case strings.HasPrefix(mtype.String(), "text/"):
		return e.extractText(path)
	default:
		e.logger.Debug("no text extractor for document type",
			"path", path, "type", mtype.String())
		return ""
	}
}

// extractText reads a plain text file up to the size cap.
func (e *Extractor) extractText(path string) string {
	f, err := os.Open(path) //nolint:gosec // Path is our own temp file
	if err != nil {
		e.logger.Warn("failed to open document", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxReadSize))
	if err != nil {
		e.logger.Warn("failed to read document", "path", path, "error", err)
		return ""
	}
	return string(data)
}

// extractCSV flattens a CSV file into space-joined rows, which is a
// friendlier shape for the analysis prompt than raw comma soup.
func (e *Extractor) extractCSV(path string) string {
	f, err := os.Open(path) //nolint:gosec // Path is our own temp file
	if err != nil {
		e.logger.Warn("failed to open document", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	reader := csv.NewReader(io.LimitReader(f, maxReadSize))
	reader.FieldsPerRecord = -1 // ragged rows are common in the wild

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed CSV: salvage what parsed so far.
			break
		}
		sb.WriteString(strings.Join(record, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}
