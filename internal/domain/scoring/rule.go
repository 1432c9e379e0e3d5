package scoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Category names for the five sub-scores.
const (
	CategoryBMI           = "bmi"
	CategoryBloodPressure = "blood_pressure"
	CategoryBloodSugar    = "blood_sugar"
	CategoryLipid         = "lipid"
	CategoryLiver         = "liver"
)

// Categories lists the five categories in canonical order.
var Categories = []string{
	CategoryBMI,
	CategoryBloodPressure,
	CategoryBloodSugar,
	CategoryLipid,
	CategoryLiver,
}

// CategoryMetrics maps each category to the CSV columns it scores.
var CategoryMetrics = map[string][]string{
	CategoryBMI:           {"BMI"},
	CategoryBloodPressure: {"sBP", "dBP"},
	CategoryBloodSugar:    {"BS", "HbA1c"},
	CategoryLipid:         {"LDL", "TG"},
	CategoryLiver:         {"AST", "ALT", "GTP"},
}

// Band awards Points to any value less than or equal to Max. Bands are
// evaluated in ascending Max order; a value above every band scores 0.
type Band struct {
	Max    float64 `json:"max"`
	Points float64 `json:"points"`
}

// Cutoff holds the tier cut points for one category. A sub-score at or
// above A grades A, at or above B grades B, and so on; below C grades D.
type Cutoff struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Rule is a stored scoring rule. All point values, weights, and cut
// points live in settings data; the server code never supplies defaults.
type Rule struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Metrics map[string][]Band  `json:"metrics,omitempty"`
	Weights map[string]float64 `json:"weights,omitempty"`
	Cutoffs map[string]Cutoff  `json:"cutoffs,omitempty"`
}

// ParseRule decodes a stored rule document.
func ParseRule(data []byte) (Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	return r, nil
}

// Validate reports whether the rule is complete enough to score with:
// every metric of every category needs at least one band, and every
// category needs ordered cut points. Rules may be stored incomplete
// (saved before being filled in); they fail here only when activated.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRule)
	}
	for _, category := range Categories {
		for _, metric := range CategoryMetrics[category] {
			if len(r.Metrics[metric]) == 0 {
				return fmt.Errorf("%w: no point bands for %s", ErrMalformedRule, metric)
			}
		}
		cut, ok := r.Cutoffs[category]
		if !ok {
			return fmt.Errorf("%w: no cut points for %s", ErrMalformedRule, category)
		}
		if cut.A < cut.B || cut.B < cut.C {
			return fmt.Errorf("%w: cut points for %s not descending", ErrMalformedRule, category)
		}
	}
	for category, w := range r.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrMalformedRule, category)
		}
	}
	return nil
}

// sortedBands returns the bands for metric in ascending Max order.
func (r Rule) sortedBands(metric string) []Band {
	bands := make([]Band, len(r.Metrics[metric]))
	copy(bands, r.Metrics[metric])
	sort.Slice(bands, func(i, j int) bool { return bands[i].Max < bands[j].Max })
	return bands
}

// points awards the metric's points for value.
func (r Rule) points(metric string, value float64) float64 {
	for _, b := range r.sortedBands(metric) {
		if value <= b.Max {
			return b.Points
		}
	}
	return 0
}

// weight returns the category weight, defaulting to 1.
func (r Rule) weight(category string) float64 {
	if w, ok := r.Weights[category]; ok {
		return w
	}
	return 1
}
