package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testColumns = []string{"Customer Name", "Customer Email", "Order Number"}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := NewCSVExporter(&buf, DefaultCSVOptions())

	require.NoError(t, exp.WriteHeader(testColumns))
	require.NoError(t, exp.WriteHeader(testColumns))
	require.NoError(t, exp.WriteRow([]string{"Ada Lovelace", "ada@example.com", "#100"}))
	require.NoError(t, exp.WriteRow([]string{"Smith, Jane", "jane@example.com", "#101"}))
	require.NoError(t, exp.Close())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		testColumns,
		{"Ada Lovelace", "ada@example.com", "#100"},
		{"Smith, Jane", "jane@example.com", "#101"},
	}, records)
	assert.Equal(t, 2, exp.RowCount())
}

func TestCSVExporter_Options(t *testing.T) {
	var buf bytes.Buffer
	exp := NewCSVExporter(&buf, CSVOptions{Delimiter: ';', UseCRLF: true, FlushEvery: 1})

	require.NoError(t, exp.WriteHeader(testColumns))
	require.NoError(t, exp.WriteRow([]string{"a", "b", "c"}))

	// flushed after every row without Close
	assert.Equal(t, "a;b;c\r\n", buf.String())
}

func TestExcelExporter(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewExcelExporter(&buf, DefaultExcelOptions())
	require.NoError(t, err)

	require.NoError(t, exp.WriteHeader(testColumns))
	require.NoError(t, exp.WriteRow([]string{"Ada Lovelace", "ada@example.com", "#100"}))
	require.NoError(t, exp.Close())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		testColumns,
		{"Ada Lovelace", "ada@example.com", "#100"},
	}, rows)
}

func TestPDFGenerator(t *testing.T) {
	var buf bytes.Buffer
	gen := NewPDFGenerator(&buf, DefaultPDFOptions())

	require.NoError(t, gen.WriteHeader(testColumns))
	for i := 0; i < 60; i++ {
		require.NoError(t, gen.WriteRow([]string{"Zoë Ødegaard", "zoe@example.com", "#100"}))
	}
	require.NoError(t, gen.Close())

	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
}

func TestFormat(t *testing.T) {
	at := time.Date(2024, 1, 5, 9, 30, 15, 0, time.UTC)

	assert.Equal(t, "customer-orders-report-2024-01-05-09-30-15.csv", FormatCSV.Filename(at))
	assert.Equal(t, "customer-orders-report-2024-01-05-09-30-15.xlsx", FormatExcel.Filename(at))
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", Format("").ContentType())
	assert.Equal(t, "csv", Format("").Extension())
}

func TestNewRowWriter(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewRowWriter(FormatCSV, &buf)
	require.NoError(t, err)
	assert.IsType(t, &CSVExporter{}, w)

	w, err = NewRowWriter(FormatExcel, &buf)
	require.NoError(t, err)
	assert.IsType(t, &ExcelExporter{}, w)

	w, err = NewRowWriter(FormatPDF, &buf)
	require.NoError(t, err)
	assert.IsType(t, &PDFGenerator{}, w)

	_, err = NewRowWriter(Format("docx"), &buf)
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestAbortWritesNothingBuffered(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatExcel, FormatPDF} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewRowWriter(format, &buf)
			require.NoError(t, err)

			require.NoError(t, w.WriteHeader([]string{"Order Number"}))
			require.NoError(t, w.WriteRow([]string{"#100"}))
			require.NoError(t, w.Abort())

			assert.Zero(t, buf.Len())
		})
	}
}
