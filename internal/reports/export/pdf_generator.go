package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator renders rows as a paginated table. gofpdf builds the whole
// document in memory; it is written out on Close.
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	out     io.Writer
	options PDFOptions
	tr      func(string) string

	columns  []string
	widths   []float64
	rowCount int
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size"`   // A4, Letter, Legal
	Orientation    string     `json:"orientation"` // portrait, landscape
	Title          string     `json:"title"`
	Subtitle       string     `json:"subtitle,omitempty"`
	DateFormat     string     `json:"date_format"`
	IncludeDate    bool       `json:"include_date"`
	IncludePageNum bool       `json:"include_page_num"`
	HeaderColor    PDFColor   `json:"header_color"`
	AlternateRows  bool       `json:"alternate_rows"`
	AlternateColor PDFColor   `json:"alternate_color"`
	FontFamily     string     `json:"font_family"`
	FontSize       float64    `json:"font_size"`
	HeaderFontSize float64    `json:"header_font_size"`
	TitleFontSize  float64    `json:"title_font_size"`
	Margins        PDFMargins `json:"margins"`
	// ColumnWeights splits the usable width between columns; equal when empty
	ColumnWeights []float64 `json:"column_weights,omitempty"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "landscape",
		Title:          "Customer Orders Report",
		DateFormat:     "2006-01-02 15:04",
		IncludeDate:    true,
		IncludePageNum: true,
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       9,
		HeaderFontSize: 10,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   10,
			Right:  10,
			Top:    15,
			Bottom: 15,
		},
		ColumnWeights: []float64{2, 3, 1.2, 2.2, 3, 4},
	}
}

const pdfRowHeight = 7

// NewPDFGenerator creates a new PDF generator writing to w on Close
func NewPDFGenerator(w io.Writer, options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(false, options.Margins.Bottom)
	pdf.SetTitle(options.Title, true)

	g := &PDFGenerator{
		pdf:     pdf,
		out:     w,
		options: options,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
	}
	g.setFooter()
	return g
}

// WriteHeader starts the first page with the title block and table header
func (g *PDFGenerator) WriteHeader(columns []string) error {
	g.columns = columns
	g.widths = g.calculateColumnWidths(len(columns))

	g.pdf.AddPage()
	g.addTitle()
	if g.options.Subtitle != "" {
		g.addSubtitle()
	}
	if g.options.IncludeDate {
		g.addDate()
	}
	g.pdf.Ln(4)

	g.addTableHeader()
	return g.pdf.Error()
}

// WriteRow appends one table row, breaking pages as needed
func (g *PDFGenerator) WriteRow(record []string) error {
	if g.widths == nil {
		g.widths = g.calculateColumnWidths(len(record))
		g.pdf.AddPage()
	}

	_, pageHeight := g.pdf.GetPageSize()
	if g.pdf.GetY()+pdfRowHeight > pageHeight-g.options.Margins.Bottom {
		g.pdf.AddPage()
		if g.columns != nil {
			g.addTableHeader()
		}
	}

	if g.options.AlternateRows && g.rowCount%2 == 1 {
		g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
	} else {
		g.pdf.SetFillColor(255, 255, 255)
	}
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	for i, val := range record {
		if i >= len(g.widths) {
			break
		}
		g.pdf.CellFormat(g.widths[i], pdfRowHeight, g.fit(g.tr(val), g.widths[i]), "1", 0, "L", true, 0, "")
	}
	g.pdf.Ln(-1)
	g.rowCount++

	return g.pdf.Error()
}

// Close writes the document
func (g *PDFGenerator) Close() error {
	if g.pdf.PageCount() == 0 {
		g.pdf.AddPage()
	}
	if err := g.pdf.Output(g.out); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// Abort drops the document; nothing has been written yet
func (g *PDFGenerator) Abort() error {
	return nil
}

func (g *PDFGenerator) addTitle() {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.tr(g.options.Title), "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addSubtitle() {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+2)
	g.pdf.SetTextColor(100, 100, 100)
	g.pdf.CellFormat(0, 8, g.tr(g.options.Subtitle), "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addDate() {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
	g.pdf.SetTextColor(128, 128, 128)
	dateStr := fmt.Sprintf("Generated: %s", time.Now().Format(g.options.DateFormat))
	g.pdf.CellFormat(0, 6, dateStr, "", 1, "R", false, 0, "")
}

func (g *PDFGenerator) addTableHeader() {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range g.columns {
		if i >= len(g.widths) {
			break
		}
		g.pdf.CellFormat(g.widths[i], 8, g.fit(g.tr(label), g.widths[i]), "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

// calculateColumnWidths splits the usable page width by the configured weights
func (g *PDFGenerator) calculateColumnWidths(n int) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	available := pageWidth - g.options.Margins.Left - g.options.Margins.Right

	weights := g.options.ColumnWeights
	if len(weights) != n {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}

	widths := make([]float64, n)
	for i, w := range weights {
		widths[i] = available * w / total
	}
	return widths
}

// fit truncates text so it stays inside a cell of the given width. The
// text is already translated to the single-byte core font encoding.
func (g *PDFGenerator) fit(text string, width float64) string {
	limit := width - 2
	if g.pdf.GetStringWidth(text) <= limit {
		return text
	}
	for len(text) > 0 && g.pdf.GetStringWidth(text+"...") > limit {
		text = text[:len(text)-1]
	}
	return text + "..."
}

func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		if !g.options.IncludePageNum {
			return
		}
		g.pdf.SetY(-12)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}
