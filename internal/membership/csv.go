package membership

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumns is returned when a CSV header lacks a required column.
var ErrMissingColumns = errors.New("CSV is missing required columns: first_name, last_name, email")

var requiredColumns = []string{"first_name", "last_name", "email"}

// normalizeColumn maps headers like "First Name" or "first-name" to "first_name".
func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name
}

// ParseCSV reads import rows from a CSV document with a header line.
// Line numbers of the returned rows are physical lines, the header being
// line 1. More than maxRows data rows yields ErrTooManyRows.
func ParseCSV(r io.Reader, maxRows int) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		col := normalizeColumn(h)
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, ErrMissingColumns
		}
	}

	field := func(record []string, col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, fmt.Errorf("%w: CSV exceeds maximum of %d rows", ErrTooManyRows, maxRows)
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, ImportRow{
			Line:      line,
			FirstName: field(record, "first_name"),
			LastName:  field(record, "last_name"),
			Email:     field(record, "email"),
		})
	}
	return rows, nil
}
