package reports

import (
	"net/url"
	"strconv"
	"strings"
)

// idListSeparators splits the "+"-joined id lists. A literal "+" in a query
// string decodes to a space, so both are accepted.
const idListSeparators = "+ "

// ParseFilters resolves raw request parameters into a FilterSpec.
// Malformed values never fail: non-numeric ids are dropped and dates are
// passed through for the store to compare.
func ParseFilters(params url.Values) FilterSpec {
	return FilterSpec{
		DateFrom:    strings.TrimSpace(params.Get("date_from")),
		DateTo:      strings.TrimSpace(params.Get("date_to")),
		CategoryIDs: parseIDList(params.Get("categories")),
		ProductIDs:  parseIDList(params.Get("products")),
	}
}

// ParseReportRequest resolves the filters plus paging and export flags
func ParseReportRequest(params url.Values) ReportRequest {
	return ReportRequest{
		Filters:      ParseFilters(params),
		Page:         parsePage(params.Get("paged")),
		Export:       params.Get("export_csv") == "1",
		ExportFormat: parseExportFormat(params.Get("export_format")),
	}
}

// FormatIDList joins ids back into the "+"-delimited query form
func FormatIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, "+")
}

func parseIDList(raw string) []int64 {
	if raw == "" {
		return nil
	}

	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(idListSeparators, r)
	})

	seen := make(map[int64]struct{}, len(tokens))
	var ids []int64
	for _, tok := range tokens {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseExportFormat(raw string) ExportFormat {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportFormatExcel, "excel":
		return ExportFormatExcel
	case ExportFormatPDF:
		return ExportFormatPDF
	default:
		return ExportFormatCSV
	}
}
