// Package model contains domain models passed between layers.
package model

import "time"

// Columns lists the required CSV columns in canonical order.
// Header matching is case-sensitive and exact.
var Columns = []string{"ID", "BMI", "sBP", "dBP", "BS", "HbA1c", "LDL", "TG", "AST", "ALT", "GTP"}

// NumericColumns lists the ten measured values, in canonical order.
var NumericColumns = Columns[1:]

// RawRecord is one CSV data row before validation. Values maps column
// names to the raw string fields; Row is the 1-based data row number.
type RawRecord struct {
	Row    int               `json:"row"`
	Values map[string]string `json:"values"`
}

// ID returns the raw identifier field.
func (r RawRecord) ID() string { return r.Values["ID"] }

// Reason classifies a validation failure.
type Reason string

const (
	ReasonNotANumber  Reason = "not-a-number"
	ReasonOutOfRange  Reason = "out-of-range"
	ReasonBadIDFormat Reason = "bad-id-format"
)

// ValidationError describes one failed check on one field of one row.
// Immutable once created; a run produces them in row order, then field order.
type ValidationError struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason Reason `json:"reason"`
}

// Grade is an evaluation tier summarizing a sub-score, A (best) to D (worst).
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// ScoredRecord is a persisted health-checkup record with computed scores.
type ScoredRecord struct {
	RecordID string `json:"recordId"`
	User     string `json:"user"`

	BMI   float64 `json:"bmi"`
	SBP   float64 `json:"sbp"`
	DBP   float64 `json:"dbp"`
	BS    float64 `json:"bs"`
	HbA1c float64 `json:"hba1c"`
	LDL   float64 `json:"ldl"`
	TG    float64 `json:"tg"`
	AST   float64 `json:"ast"`
	ALT   float64 `json:"alt"`
	GTP   float64 `json:"gtp"`

	BMIScore           float64 `json:"bmiScore"`
	BloodPressureScore float64 `json:"bloodPressureScore"`
	BloodSugarScore    float64 `json:"bloodSugarScore"`
	LipidScore         float64 `json:"lipidScore"`
	LiverScore         float64 `json:"liverScore"`
	TotalScore         float64 `json:"totalScore"`

	BMIGrade           Grade `json:"bmiGrade"`
	BloodPressureGrade Grade `json:"bloodPressureGrade"`
	BloodSugarGrade    Grade `json:"bloodSugarGrade"`
	LipidGrade         Grade `json:"lipidGrade"`
	LiverGrade         Grade `json:"liverGrade"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Bucket is one bar of the score distribution histogram.
type Bucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// ExtractedEntry is one row of the derived top-fraction set. The whole
// set is replaced wholesale on every extraction run.
type ExtractedEntry struct {
	RecordID   string  `json:"recordId"`
	TotalScore float64 `json:"totalScore"`
}

// Setting is a generic key-value configuration row, upserted by key.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LogEntry is an operational log line persisted to the logs table.
type LogEntry struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a stored credential row. Passwords are compared as plain text,
// matching the upstream data layout (see DESIGN.md).
type User struct {
	Name     string
	Password string
}
