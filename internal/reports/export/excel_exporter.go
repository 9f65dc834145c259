package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes rows to a single-sheet workbook. Rows go through
// excelize's stream writer; the workbook is written out on Close.
type ExcelExporter struct {
	file    *excelize.File
	stream  *excelize.StreamWriter
	out     io.Writer
	options ExcelOptions

	headerStyle int
	dataStyle   int
	nextRow     int
	widths      []float64
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName     string            `json:"sheet_name"`
	IncludeHeader bool              `json:"include_header"`
	FreezeHeader  bool              `json:"freeze_header"`
	ColumnWidths  []float64         `json:"column_widths,omitempty"`
	HeaderStyle   *ExcelStyleConfig `json:"header_style,omitempty"`
	DataStyle     *ExcelStyleConfig `json:"data_style,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
	WrapText  bool   `json:"wrap_text"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:     "Orders",
		IncludeHeader: true,
		FreezeHeader:  true,
		ColumnWidths:  []float64{24, 32, 14, 26, 36, 48},
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "4472C4",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize:  11,
			Alignment: "left",
			Border:    true,
			WrapText:  true,
		},
	}
}

// NewExcelExporter creates a new Excel exporter writing to w on Close
func NewExcelExporter(w io.Writer, options ExcelOptions) (*ExcelExporter, error) {
	file := excelize.NewFile()

	if options.SheetName == "" {
		options.SheetName = "Sheet1"
	}
	if err := file.SetSheetName("Sheet1", options.SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	e := &ExcelExporter{
		file:    file,
		out:     w,
		options: options,
		nextRow: 1,
		widths:  options.ColumnWidths,
	}

	var err error
	if options.HeaderStyle != nil {
		if e.headerStyle, err = e.createStyle(options.HeaderStyle); err != nil {
			return nil, fmt.Errorf("failed to create header style: %w", err)
		}
	}
	if options.DataStyle != nil {
		if e.dataStyle, err = e.createStyle(options.DataStyle); err != nil {
			return nil, fmt.Errorf("failed to create data style: %w", err)
		}
	}

	stream, err := file.NewStreamWriter(options.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet stream: %w", err)
	}
	e.stream = stream

	// Column widths must be set before any row is streamed
	for i, width := range e.widths {
		if err := stream.SetColWidth(i+1, i+1, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	return e, nil
}

// WriteHeader writes the header row with styling
func (e *ExcelExporter) WriteHeader(columns []string) error {
	if !e.options.IncludeHeader || e.nextRow != 1 {
		return nil
	}

	if e.options.FreezeHeader {
		if err := e.stream.SetPanes(&excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}

	return e.writeCells(columns, e.headerStyle)
}

// WriteRow writes a single data row
func (e *ExcelExporter) WriteRow(record []string) error {
	return e.writeCells(record, e.dataStyle)
}

func (e *ExcelExporter) writeCells(values []string, styleID int) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = excelize.Cell{StyleID: styleID, Value: v}
	}

	cell, err := excelize.CoordinatesToCellName(1, e.nextRow)
	if err != nil {
		return err
	}
	if err := e.stream.SetRow(cell, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", e.nextRow, err)
	}
	e.nextRow++
	return nil
}

// Close finishes the sheet and writes the workbook
func (e *ExcelExporter) Close() error {
	defer e.file.Close()

	if err := e.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := e.file.Write(e.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Abort releases the workbook without writing it
func (e *ExcelExporter) Abort() error {
	return e.file.Close()
}

// createStyle creates an Excel style from config
func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{}

	style.Font = &excelize.Font{
		Bold: config.FontBold,
		Size: float64(config.FontSize),
	}
	if config.FontColor != "" {
		style.Font.Color = config.FontColor
	}

	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}

	if config.Alignment != "" || config.WrapText {
		style.Alignment = &excelize.Alignment{
			Horizontal: config.Alignment,
			WrapText:   config.WrapText,
		}
	}

	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	return e.file.NewStyle(style)
}
