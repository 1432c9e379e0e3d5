// Package validate checks parsed checkup rows against fixed field rules.
package validate

import (
	"math"
	"regexp"
	"strconv"

	"github.com/okian/kenshin/internal/domain/model"
)

// Range is the inclusive [Min, Max] window a measured value must fall in.
type Range struct {
	Min float64
	Max float64
}

// Ranges holds the fixed per-field windows for the ten measured values.
var Ranges = map[string]Range{
	"BMI":   {Min: 10, Max: 50},
	"sBP":   {Min: 60, Max: 200},
	"dBP":   {Min: 40, Max: 130},
	"BS":    {Min: 50, Max: 200},
	"HbA1c": {Min: 4, Max: 10},
	"LDL":   {Min: 30, Max: 300},
	"TG":    {Min: 30, Max: 1000},
	"AST":   {Min: 10, Max: 200},
	"ALT":   {Min: 10, Max: 200},
	"GTP":   {Min: 10, Max: 500},
}

var idPattern = regexp.MustCompile(`^\d{4,10}$`)

// Report is the outcome of a validation run.
type Report struct {
	IsValid  bool                    `json:"isValid"`
	Errors   []model.ValidationError `json:"errors"`
	RowCount int                     `json:"rowCount"`
}

// Records validates every field of every record. Checks are exhaustive:
// a row never short-circuits on its first error, so one row can produce
// several errors. Errors come out in row order, then canonical field
// order (ID first). Pure; nothing is persisted.
func Records(records []model.RawRecord) Report {
	report := Report{RowCount: len(records)}

	for _, rec := range records {
		for _, col := range model.Columns {
			value := rec.Values[col]
			if col == "ID" {
				if !idPattern.MatchString(value) {
					report.Errors = append(report.Errors, model.ValidationError{
						Row:    rec.Row,
						Column: col,
						Value:  value,
						Reason: model.ReasonBadIDFormat,
					})
				}
				continue
			}

			n, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				report.Errors = append(report.Errors, model.ValidationError{
					Row:    rec.Row,
					Column: col,
					Value:  value,
					Reason: model.ReasonNotANumber,
				})
				// No range check is attempted for an unparseable field.
				continue
			}
			r := Ranges[col]
			if n < r.Min || n > r.Max {
				report.Errors = append(report.Errors, model.ValidationError{
					Row:    rec.Row,
					Column: col,
					Value:  value,
					Reason: model.ReasonOutOfRange,
				})
			}
		}
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

// Record validates a single record and returns its errors.
func Record(rec model.RawRecord) []model.ValidationError {
	return Records([]model.RawRecord{rec}).Errors
}
