package pipeline

import "github.com/newthinker/tradelab/internal/core"

// Validate checks that bars form a usable daily price series: at least one
// row, strictly increasing timestamps and a finite positive close on every
// row. Violations are reported as SCHEMA_INVALID.
func Validate(bars []core.OHLCV) error {
	if len(bars) == 0 {
		return core.Schemaf("price series has no rows")
	}

	for i, bar := range bars {
		if bar.Time.IsZero() {
			return core.Schemaf("row %d has no timestamp", i)
		}
		if !finite(bar.Close) || bar.Close <= 0 {
			return core.Schemaf("row %d (%s) has invalid close %v", i, bar.Time.Format("2006-01-02"), bar.Close)
		}
		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return core.Schemaf("row %d (%s) is not after the previous row", i, bar.Time.Format("2006-01-02"))
		}
	}

	return nil
}
