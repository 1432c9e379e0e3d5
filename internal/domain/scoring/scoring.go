// Package scoring computes category sub-scores and totals from stored rules.
package scoring

import (
	"context"
	"fmt"
	"strconv"

	"github.com/okian/kenshin/internal/domain/model"
)

// Input carries the numeric fields of one validated record.
type Input struct {
	RecordID string
	Values   map[string]float64 // keyed by CSV column name
}

// InputFromRecord converts a validated RawRecord into a scoring input.
// Fields are assumed to have passed validation; a parse failure here is
// a programmer error surfaced as ErrBadInput.
func InputFromRecord(rec model.RawRecord) (Input, error) {
	in := Input{
		RecordID: rec.ID(),
		Values:   make(map[string]float64, len(model.NumericColumns)),
	}
	for _, col := range model.NumericColumns {
		n, err := strconv.ParseFloat(rec.Values[col], 64)
		if err != nil {
			return Input{}, fmt.Errorf("%w: %s=%q", ErrBadInput, col, rec.Values[col])
		}
		in.Values[col] = n
	}
	return in, nil
}

// Result contains the computed scores for one record.
type Result struct {
	RecordID  string
	SubScores map[string]float64     // by category
	Grades    map[string]model.Grade // by category
	Total     float64
}

// Scorer computes a score from an input.
type Scorer interface {
	// Score computes sub-scores, grades, and the total, honoring ctx.
	Score(ctx context.Context, in Input) (Result, error)
}

// RuleScorer implements Scorer against a single stored rule. It is
// deterministic and pure: identical input and rule produce identical
// output.
type RuleScorer struct {
	rule Rule
}

// NewRuleScorer builds a scorer for rule, rejecting incomplete rules.
func NewRuleScorer(rule Rule) (*RuleScorer, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &RuleScorer{rule: rule}, nil
}

// Score computes the five category sub-scores, their grades, and the
// weighted total.
func (s *RuleScorer) Score(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	result := Result{
		RecordID:  in.RecordID,
		SubScores: make(map[string]float64, len(Categories)),
		Grades:    make(map[string]model.Grade, len(Categories)),
	}

	for _, category := range Categories {
		var sub float64
		for _, metric := range CategoryMetrics[category] {
			value, ok := in.Values[metric]
			if !ok {
				return Result{}, fmt.Errorf("%w: missing %s", ErrBadInput, metric)
			}
			sub += s.rule.points(metric, value)
		}
		result.SubScores[category] = sub
		result.Grades[category] = s.grade(category, sub)
		result.Total += s.rule.weight(category) * sub
	}

	return result, nil
}

func (s *RuleScorer) grade(category string, sub float64) model.Grade {
	cut := s.rule.Cutoffs[category]
	switch {
	case sub >= cut.A:
		return model.GradeA
	case sub >= cut.B:
		return model.GradeB
	case sub >= cut.C:
		return model.GradeC
	default:
		return model.GradeD
	}
}
