package statement

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Line is one normalized statement line handed to the pipeline. Bank
// specific column mapping stays inside this adapter; the pipeline never
// sees raw bank formats.
type Line struct {
	Number       int // 1-based line number in the source file
	Date         time.Time
	Amount       decimal.Decimal
	Description  string
	Reference    string
	Counterparty string
	DetectedIBAN string
}

// LineError records a row that could not be parsed. Bad rows are
// collected, not fatal: the rest of the file still imports.
type LineError struct {
	Line   int
	Reason string
}

// ParseResult is the output of parsing one statement file.
type ParseResult struct {
	Lines      []Line
	HeaderIBAN string
	LineErrors []LineError
}

// header aliases accepted for each field, lowercase
var headerAliases = map[string]string{
	"fecha":        "date",
	"date":         "date",
	"importe":      "amount",
	"amount":       "amount",
	"concepto":     "description",
	"descripcion":  "description",
	"description":  "description",
	"referencia":   "reference",
	"reference":    "reference",
	"contraparte":  "counterparty",
	"counterparty": "counterparty",
	"iban":         "iban",
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

var ibanPattern = regexp.MustCompile(`[A-Z]{2}[0-9]{2}[A-Z0-9]{10,30}`)

// ExtractIBAN returns the first IBAN-shaped token found in s, spaces
// ignored, or "" when none is present.
func ExtractIBAN(s string) string {
	compact := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	return ibanPattern.FindString(compact)
}

// ParseCSV reads a normalized statement CSV. The header row maps columns
// by name (Spanish or English aliases); unknown columns are ignored. An
// IBAN found in a header cell becomes HeaderIBAN, the highest-confidence
// source for account resolution. A file without a usable header or with
// no rows at all is a parse failure.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read statement header: %w", err)
	}

	headerMap := make(map[string]int)
	result := &ParseResult{}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if field, ok := headerAliases[name]; ok {
			if _, taken := headerMap[field]; !taken {
				headerMap[field] = i
			}
			continue
		}
		if iban := ExtractIBAN(cell); iban != "" && result.HeaderIBAN == "" {
			result.HeaderIBAN = iban
		}
	}

	if _, ok := headerMap["date"]; !ok {
		return nil, fmt.Errorf("statement header has no date column")
	}
	if _, ok := headerMap["amount"]; !ok {
		return nil, fmt.Errorf("statement header has no amount column")
	}

	lineNo := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			result.LineErrors = append(result.LineErrors, LineError{Line: lineNo, Reason: err.Error()})
			continue
		}

		line, err := parseRecord(record, headerMap, lineNo)
		if err != nil {
			result.LineErrors = append(result.LineErrors, LineError{Line: lineNo, Reason: err.Error()})
			continue
		}
		result.Lines = append(result.Lines, line)
	}

	if len(result.Lines) == 0 && len(result.LineErrors) == 0 {
		return nil, fmt.Errorf("statement file has no data rows")
	}

	return result, nil
}

func parseRecord(record []string, headerMap map[string]int, lineNo int) (Line, error) {
	cell := func(field string) string {
		idx, ok := headerMap[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseDate(cell("date"))
	if err != nil {
		return Line{}, err
	}

	amount, err := parseAmount(cell("amount"))
	if err != nil {
		return Line{}, err
	}

	line := Line{
		Number:       lineNo,
		Date:         date,
		Amount:       amount,
		Description:  cell("description"),
		Reference:    cell("reference"),
		Counterparty: cell("counterparty"),
		DetectedIBAN: ExtractIBAN(cell("iban")),
	}

	return line, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount accepts both "1234.56" and Spanish "1.234,56" forms.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	cleaned := strings.ReplaceAll(s, " ", "")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", s)
	}
	return amount, nil
}
