// Package pipeline prepares raw provider bars for the signal generator.
package pipeline

import (
	"math"
	"sort"

	"github.com/newthinker/tradelab/internal/core"
)

// Clean returns a sorted, de-duplicated copy of bars with gaps filled.
//
// Duplicate timestamps keep the first occurrence in provider order.
// Non-finite prices and volumes are forward-filled from the previous row,
// then back-filled from the next; rows that still have a non-finite close
// are dropped. Times are normalised to UTC. The input is not modified.
func Clean(bars []core.OHLCV) []core.OHLCV {
	if len(bars) == 0 {
		return nil
	}

	out := make([]core.OHLCV, len(bars))
	copy(out, bars)
	for i := range out {
		out[i].Time = out[i].Time.UTC()
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	deduped := out[:0]
	for i, bar := range out {
		if i > 0 && bar.Time.Equal(deduped[len(deduped)-1].Time) {
			continue
		}
		deduped = append(deduped, bar)
	}
	out = deduped

	for _, field := range fields {
		fill(out, field)
	}

	kept := out[:0]
	for _, bar := range out {
		if finite(bar.Close) {
			kept = append(kept, bar)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

type fieldAccessor func(*core.OHLCV) *float64

var fields = []fieldAccessor{
	func(b *core.OHLCV) *float64 { return &b.Open },
	func(b *core.OHLCV) *float64 { return &b.High },
	func(b *core.OHLCV) *float64 { return &b.Low },
	func(b *core.OHLCV) *float64 { return &b.Close },
	func(b *core.OHLCV) *float64 { return &b.Volume },
}

// fill forward-fills then back-fills non-finite values of one column
func fill(bars []core.OHLCV, field fieldAccessor) {
	last := math.NaN()
	for i := range bars {
		v := field(&bars[i])
		if finite(*v) {
			last = *v
		} else {
			*v = last
		}
	}

	next := math.NaN()
	for i := len(bars) - 1; i >= 0; i-- {
		v := field(&bars[i])
		if finite(*v) {
			next = *v
		} else {
			*v = next
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
