package indicators

import (
	"fmt"
	"math"

	"upstox-analyst/internal/models"
)

// RSI calculates the Relative Strength Index.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	result := nanSlice(n)
	if n < r.period+1 {
		return result, nil
	}

	closes := closePrices(candles)
	gains := make([]float64, n)
	losses := make([]float64, n)

	// Calculate gains and losses
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// Both averages are plain rolling means over the trailing window, not
	// Wilder smoothing. A lossless window yields 100 directly.
	for i := r.period; i < n; i++ {
		avgGain := mean(gains[i-r.period+1 : i+1])
		avgLoss := mean(losses[i-r.period+1 : i+1])

		if avgLoss == 0 {
			result[i] = 100
		} else {
			rs := avgGain / avgLoss
			result[i] = 100 - (100 / (1 + rs))
		}
	}

	return result, nil
}

// Returns calculates close-over-close percentage returns.
type Returns struct{}

// NewReturns creates a new Returns indicator.
func NewReturns() *Returns {
	return &Returns{}
}

func (r *Returns) Name() string {
	return "Returns"
}

func (r *Returns) Period() int {
	return 2
}

func (r *Returns) Calculate(candles []models.Candle) ([]float64, error) {
	n := len(candles)
	result := nanSlice(n)
	closes := closePrices(candles)

	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			result[i] = 100 * (closes[i] - closes[i-1]) / closes[i-1]
		}
	}

	return result, nil
}

// ROC calculates Rate of Change over a period.
type ROC struct {
	period int
}

// NewROC creates a new ROC indicator.
func NewROC(period int) *ROC {
	return &ROC{period: period}
}

func (r *ROC) Name() string {
	return fmt.Sprintf("ROC_%d", r.period)
}

func (r *ROC) Period() int {
	return r.period
}

func (r *ROC) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	result := nanSlice(n)
	closes := closePrices(candles)

	for i := r.period; i < n; i++ {
		if closes[i-r.period] != 0 {
			result[i] = 100 * (closes[i] - closes[i-r.period]) / closes[i-r.period]
		}
	}

	return result, nil
}

// PeriodChange returns the percentage change between the first and last close
// of a candle window, or NaN when the window is too short.
func PeriodChange(candles []models.Candle) float64 {
	if len(candles) < 2 || candles[0].Close == 0 {
		return math.NaN()
	}
	first := candles[0].Close
	last := candles[len(candles)-1].Close
	return 100 * (last - first) / first
}
