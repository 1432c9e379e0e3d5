// Package aggregate buckets total scores into the fixed distribution.
package aggregate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/okian/kenshin/internal/domain/model"
)

// BucketRanges lists the fixed histogram buckets in display order.
var BucketRanges = []string{"0-49", "50-99", "100-149", "150-199", "200+"}

// ErrBadScore means a stored total score could not be read as a number.
var ErrBadScore = errors.New("total score is not a number")

// Distribution buckets the given raw total-score values. Counts always
// sum to the input length; empty input yields all-zero buckets.
//
// Any value that does not parse as a number fails the whole aggregation.
// This is deliberately stricter than validation, which collects per-field
// errors and carries on; the two policies must not be unified.
func Distribution(totals []string) ([]model.Bucket, error) {
	counts := make([]int, len(BucketRanges))

	for i, raw := range totals {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d value %q", ErrBadScore, i+1, raw)
		}
		counts[bucketIndex(score)]++
	}

	buckets := make([]model.Bucket, len(BucketRanges))
	for i, r := range BucketRanges {
		buckets[i] = model.Bucket{Range: r, Count: counts[i]}
	}
	return buckets, nil
}

func bucketIndex(score float64) int {
	switch {
	case score < 50:
		return 0
	case score < 100:
		return 1
	case score < 150:
		return 2
	case score < 200:
		return 3
	default:
		return 4
	}
}
