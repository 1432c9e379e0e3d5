// Package extract selects the top-scoring fraction of records.
package extract

import (
	"errors"
	"math"
	"sort"

	"github.com/okian/kenshin/internal/domain/model"
)

// ErrInvalidFraction means the requested fraction is outside (0, 1].
var ErrInvalidFraction = errors.New("extraction fraction must be in (0, 1]")

// ValidFraction reports whether p is a usable extraction fraction.
func ValidFraction(p float64) bool {
	return p > 0 && p <= 1 && !math.IsNaN(p)
}

// TopFraction returns the top max(1, floor(n*p)) entries by total score
// descending. The sort is stable: entries with equal scores keep their
// input order, which callers fix as insertion order. The input slice is
// not modified. An empty input yields an empty result.
func TopFraction(entries []model.ExtractedEntry, p float64) ([]model.ExtractedEntry, error) {
	if !ValidFraction(p) {
		return nil, ErrInvalidFraction
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sorted := make([]model.ExtractedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalScore > sorted[j].TotalScore
	})

	n := int(math.Floor(float64(len(sorted)) * p))
	if n < 1 {
		n = 1
	}
	return sorted[:n], nil
}
