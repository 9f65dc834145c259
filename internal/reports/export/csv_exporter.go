package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExporter streams rows to CSV
type CSVExporter struct {
	writer        *csv.Writer
	options       CSVOptions
	headerWritten bool
	rowCount      int
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter     rune `json:"delimiter"`      // Field delimiter (default: comma)
	UseCRLF       bool `json:"use_crlf"`       // Use \r\n for line terminator
	IncludeHeader bool `json:"include_header"` // Include column headers
	FlushEvery    int  `json:"flush_every"`    // Rows between flushes to the underlying writer
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		UseCRLF:       false,
		IncludeHeader: true,
		FlushEvery:    100,
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteHeader writes the CSV header row
func (e *CSVExporter) WriteHeader(columns []string) error {
	if !e.options.IncludeHeader || e.headerWritten {
		return nil
	}

	if err := e.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	e.headerWritten = true
	return nil
}

// WriteRow writes a single row of data
func (e *CSVExporter) WriteRow(record []string) error {
	if err := e.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	e.rowCount++

	if e.options.FlushEvery > 0 && e.rowCount%e.options.FlushEvery == 0 {
		return e.Flush()
	}
	return nil
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

// Close flushes the remaining rows
func (e *CSVExporter) Close() error {
	return e.Flush()
}

// Abort discards rows still buffered. Rows already flushed stay written.
func (e *CSVExporter) Abort() error {
	e.writer = csv.NewWriter(io.Discard)
	return nil
}

// RowCount returns the number of rows written
func (e *CSVExporter) RowCount() int {
	return e.rowCount
}
