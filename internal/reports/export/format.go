package export

import (
	"fmt"
	"io"
	"time"
)

// RowWriter receives rows one at a time. Exactly one of Close or Abort is
// called: Close finishes the document, Abort drops whatever has not yet
// reached the underlying writer.
type RowWriter interface {
	WriteHeader(columns []string) error
	WriteRow(record []string) error
	Close() error
	Abort() error
}

// Format identifies an export encoding
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// FilenamePrefix names every downloaded export
const FilenamePrefix = "customer-orders-report"

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatPDF:
		return "pdf"
	default:
		return "csv"
	}
}

// Filename returns the download name for an export generated at t
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("%s-%s.%s", FilenamePrefix, t.Format("2006-01-02-15-04-05"), f.Extension())
}

// NewRowWriter creates the encoder for format writing to w
func NewRowWriter(format Format, w io.Writer) (RowWriter, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVExporter(w, DefaultCSVOptions()), nil
	case FormatExcel:
		exp, err := NewExcelExporter(w, DefaultExcelOptions())
		if err != nil {
			return nil, err
		}
		return exp, nil
	case FormatPDF:
		return NewPDFGenerator(w, DefaultPDFOptions()), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}
