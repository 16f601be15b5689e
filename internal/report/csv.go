package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/FlyMan2612/DocCrawler/internal/model"
)

// CSVWriter outputs analyzed documents as CSV rows.
// This format is designed for spreadsheet triage of large result sets.
//
// Only documents that reached the analysis step are written; documents
// whose download or extraction failed carry no verdict and would only
// add noise to the sheet.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// csvHeader is the fixed column set of the CSV output.
var csvHeader = []string{"url", "is_sensitive", "analysis"}

// Write outputs one row per analyzed document.
// The byte count is approximate: encoding/csv does not report it, so we
// count the serialized field lengths plus separators.
func (w *CSVWriter) Write(report *model.ScanReport) (int, error) {
	cw := csv.NewWriter(w.output)

	total := rowLen(csvHeader)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	for _, d := range report.Documents {
		if !d.Analyzed {
			continue
		}
		row := []string{d.URL, strconv.FormatBool(d.Sensitive), d.Analysis}
		if err := cw.Write(row); err != nil {
			return total, err
		}
		total += rowLen(row)
	}

	cw.Flush()
	return total, cw.Error()
}

func rowLen(row []string) int {
	n := len(row) // separators plus newline
	for _, f := range row {
		n += len(f)
	}
	return n
}
