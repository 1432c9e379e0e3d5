// Package csvfile parses uploaded checkup CSV files into raw records.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/kenshin/internal/domain/model"
)

// RowError reports a structural problem with one data row. The row is
// excluded from the parsed records, never repaired.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result contains the parsed records alongside structural row errors.
type Result struct {
	Records []model.RawRecord `json:"records"`
	Errors  []RowError        `json:"errors"`
}

// Parse converts raw CSV bytes into ordered RawRecords.
//
// The input may be UTF-8, UTF-8 with BOM, or Shift-JIS; it is transcoded
// before parsing. The header row is required and must contain every
// required column by exact, case-sensitive name. Rows whose field count
// does not match the header are reported as RowErrors and excluded.
func Parse(data []byte) (*Result, error) {
	decoded, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("csvfile: %w", err)
	}
	if len(bytes.TrimSpace(decoded)) == 0 {
		return nil, ErrNoData
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	// Field-count mismatches are our own structural errors, not csv errors.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("csvfile: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, col := range model.Columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	result := &Result{}
	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			result.Errors = append(result.Errors, RowError{
				Row:     row,
				Message: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}
		if len(fields) != len(header) {
			result.Errors = append(result.Errors, RowError{
				Row:     row,
				Message: fmt.Sprintf("row has %d fields, header has %d", len(fields), len(header)),
			})
			continue
		}

		values := make(map[string]string, len(model.Columns))
		for _, col := range model.Columns {
			values[col] = strings.TrimSpace(fields[index[col]])
		}
		result.Records = append(result.Records, model.RawRecord{Row: row, Values: values})
	}

	if len(result.Records) == 0 && len(result.Errors) == 0 {
		return nil, ErrNoData
	}
	return result, nil
}
