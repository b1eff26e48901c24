package indicators

import (
	"fmt"
	"sort"

	"upstox-analyst/internal/models"
)

// SupportResistance finds support and resistance levels from local extrema
// over a centered rolling window. A bar is a resistance candidate when its
// high equals the window maximum, and a support candidate when its low
// equals the window minimum. Bars within half a window of either edge are
// never candidates.
type SupportResistance struct {
	window int
}

// NewSupportResistance creates a new SupportResistance detector.
func NewSupportResistance(window int) *SupportResistance {
	return &SupportResistance{window: window}
}

func (s *SupportResistance) Name() string {
	return fmt.Sprintf("SupportResistance_%d", s.window)
}

func (s *SupportResistance) Period() int {
	return s.window
}

// Levels holds the detected price levels.
type Levels struct {
	Support    []float64 // ascending from the lowest, at most 5
	Resistance []float64 // ascending, the highest five
}

// CalculateLevels scans the candles for local extrema and returns the top
// five distinct resistance levels and bottom five distinct support levels.
// Series shorter than the window yield empty level lists.
func (s *SupportResistance) CalculateLevels(candles []models.Candle) (*Levels, error) {
	if s.window <= 0 {
		return nil, ErrInvalidPeriod
	}

	half := s.window / 2
	n := len(candles)

	highs := highPrices(candles)
	lows := lowPrices(candles)

	var resistance, support []float64
	for i := half; i < n-half; i++ {
		winHighs := highs[i-half : i+half+1]
		winLows := lows[i-half : i+half+1]

		if highs[i] == highest(winHighs) {
			resistance = append(resistance, highs[i])
		}
		if lows[i] == lowest(winLows) {
			support = append(support, lows[i])
		}
	}

	return &Levels{
		Support:    bottomDistinct(support, 5),
		Resistance: topDistinct(resistance, 5),
	}, nil
}

func topDistinct(values []float64, limit int) []float64 {
	distinct := dedupe(values)
	sort.Float64s(distinct)
	if len(distinct) > limit {
		distinct = distinct[len(distinct)-limit:]
	}
	return distinct
}

func bottomDistinct(values []float64, limit int) []float64 {
	distinct := dedupe(values)
	sort.Float64s(distinct)
	if len(distinct) > limit {
		distinct = distinct[:limit]
	}
	return distinct
}

func dedupe(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
