package services

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column name aliases. Uploaded files rarely agree on headers, so each
// canonical field accepts a few spellings.
var csvColumnAliases = map[string][]string{
	"scope":            {"scope"},
	"activity_type":    {"activity_type", "activity type", "type"},
	"quantity":         {"quantity", "amount", "value"},
	"unit":             {"unit", "units"},
	"period_start":     {"period_start", "period start", "start_date", "start date"},
	"period_end":       {"period_end", "period end", "end_date", "end date"},
	"scope_3_category": {"scope_3_category", "scope 3 category", "category"},
	"data_quality":     {"data_quality", "data quality", "quality"},
	"assumptions":      {"assumptions"},
	"confidence_score": {"confidence_score", "confidence score", "confidence"},
}

// CSVActivityRow is one validated data row from a manual activity upload.
type CSVActivityRow struct {
	Scope           int
	ActivityType    string
	Quantity        decimal.Decimal
	Unit            string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Scope3Category  *string
	DataQuality     string
	Assumptions     *string
	ConfidenceScore *decimal.Decimal
}

// CSVRowError reports why one row was rejected. Row numbers are 1-based file
// lines, so the first data row under the header is row 2.
type CSVRowError struct {
	Row     int    `json:"row"`
	Message string `json:"error"`
}

// ParseActivityRows parses CSV bytes into validated activity rows. Bad rows
// are collected as errors and do not block the rest of the file.
func ParseActivityRows(content []byte) ([]CSVActivityRow, []CSVRowError) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil || len(header) == 0 {
		return nil, []CSVRowError{{Row: 0, Message: "Empty or invalid CSV"}}
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	columns := indexColumns(header)

	var rows []CSVActivityRow
	var rowErrors []CSVRowError

	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, CSVRowError{Row: rowNum, Message: "malformed CSV row"})
			continue
		}

		row, rowErr := parseActivityRow(columns, record)
		if rowErr != "" {
			rowErrors = append(rowErrors, CSVRowError{Row: rowNum, Message: rowErr})
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrors
}

func parseActivityRow(columns map[string][]int, record []string) (CSVActivityRow, string) {
	var row CSVActivityRow

	activityType := columnValue(columns, record, "activity_type")
	unit := columnValue(columns, record, "unit")
	periodStart := columnValue(columns, record, "period_start")
	periodEnd := columnValue(columns, record, "period_end")

	switch {
	case activityType == "":
		return row, "activity_type is required"
	case unit == "":
		return row, "unit is required"
	case periodStart == "":
		return row, "period_start is required"
	case periodEnd == "":
		return row, "period_end is required"
	}

	scopeStr := columnValue(columns, record, "scope")
	if scopeStr == "" {
		scopeStr = "3"
	}
	scope, err := strconv.Atoi(scopeStr)
	if err != nil || (scope != 1 && scope != 2 && scope != 3) {
		return row, "scope must be 1, 2, or 3"
	}

	quantityStr := columnValue(columns, record, "quantity")
	if quantityStr == "" {
		quantityStr = "0"
	}
	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		return row, "quantity must be a number"
	}
	if quantity.IsNegative() {
		return row, "quantity must not be negative"
	}

	start, err := time.Parse("2006-01-02", periodStart)
	if err != nil {
		return row, "period_start must be a YYYY-MM-DD date"
	}
	end, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		return row, "period_end must be a YYYY-MM-DD date"
	}
	if end.Before(start) {
		return row, "period_end must not be before period_start"
	}

	var confidence *decimal.Decimal
	if confStr := columnValue(columns, record, "confidence_score"); confStr != "" {
		if parsed, err := decimal.NewFromString(confStr); err == nil {
			confidence = &parsed
		}
	}

	quality := columnValue(columns, record, "data_quality")
	if quality == "" {
		quality = "manual"
	}

	row = CSVActivityRow{
		Scope:           scope,
		ActivityType:    activityType,
		Quantity:        quantity,
		Unit:            unit,
		PeriodStart:     start,
		PeriodEnd:       end,
		Scope3Category:  optionalString(columnValue(columns, record, "scope_3_category")),
		DataQuality:     quality,
		Assumptions:     optionalString(columnValue(columns, record, "assumptions")),
		ConfidenceScore: confidence,
	}
	return row, ""
}

// indexColumns maps each canonical field to the header positions that can
// supply it, in alias priority order.
func indexColumns(header []string) map[string][]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeCSVKey(h)
	}

	columns := make(map[string][]int, len(csvColumnAliases))
	for canonical, aliases := range csvColumnAliases {
		for _, alias := range aliases {
			want := normalizeCSVKey(alias)
			for i, h := range normalized {
				if h == want {
					columns[canonical] = append(columns[canonical], i)
				}
			}
		}
	}
	return columns
}

// columnValue returns the first non-empty cell among the aliased columns.
func columnValue(columns map[string][]int, record []string, canonical string) string {
	for _, i := range columns[canonical] {
		if i >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[i]); v != "" {
			return v
		}
	}
	return ""
}

func normalizeCSVKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, "-", "_")
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SampleActivityCSV is the template surfaced by the upload endpoint so users
// can see the expected columns.
func SampleActivityCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"scope", "activity_type", "quantity", "unit", "period_start", "period_end", "scope_3_category", "data_quality", "assumptions", "confidence_score"})
	_ = w.Write([]string{"3", "cloud_compute_hours", "1200", "hours", "2025-01-01", "2025-01-31", "cloud", "manual", "Exported from billing console", "80"})
	_ = w.Write([]string{"2", "purchased_electricity_kwh", "5400", "kWh", "2025-01-01", "2025-01-31", "", "measured", "", "95"})
	w.Flush()
	return buf.Bytes()
}
