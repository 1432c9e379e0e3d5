package seeddata

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/internal/domain/validate"
)

const randomFloatDivisor = 1000000

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// Record is one generated checkup row keyed by CSV column.
type Record map[string]string

// generateRecords builds rows with unique numeric IDs. Values are drawn
// inside the validation ranges; a configurable share of rows gets one
// out-of-range value to exercise validation reporting.
func generateRecords(config *Config, stats *Stats) []Record {
	records := make([]Record, config.NumRecords)

	// Sequential 7-digit IDs keep the checkup-ID format satisfied
	// without collision bookkeeping.
	base, _ := rand.Int(rand.Reader, big.NewInt(8_000_000))
	start := base.Int64() + 1_000_000

	for i := range records {
		rec := Record{"ID": fmt.Sprintf("%07d", start+int64(i))}
		for _, col := range model.NumericColumns {
			r := validate.Ranges[col]
			v := r.Min + getRandomFloat()*(r.Max-r.Min)
			rec[col] = fmt.Sprintf("%.1f", v)
		}
		if config.InvalidRatio > 0 && getRandomFloat() < config.InvalidRatio {
			// One implausible blood pressure per planted row.
			rec["sBP"] = "999"
			stats.InvalidPlanted++
		}
		records[i] = rec
	}
	stats.Generated = len(records)
	return records
}

// toCSV renders records as an upload body with the canonical header.
func toCSV(records []Record) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(model.Columns, ","))
	b.WriteByte('\n')
	for _, rec := range records {
		fields := make([]string, len(model.Columns))
		for i, col := range model.Columns {
			fields[i] = rec[col]
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
