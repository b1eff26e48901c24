package indicators

import (
	"fmt"
	"math"

	"upstox-analyst/internal/models"
)

// BollingerBands calculates Bollinger Bands.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BollingerBands_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if b.period <= 0 || b.stdDevMul <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	closes := closePrices(candles)

	middle := nanSlice(n)
	upper := nanSlice(n)
	lower := nanSlice(n)
	percentB := nanSlice(n)

	for i := b.period - 1; i < n; i++ {
		slice := closes[i-b.period+1 : i+1]
		sma := mean(slice)
		sd := stdDev(slice)

		middle[i] = sma
		upper[i] = sma + b.stdDevMul*sd
		lower[i] = sma - b.stdDevMul*sd

		// %B = (Price - Lower) / (Upper - Lower)
		bandWidth := upper[i] - lower[i]
		if bandWidth != 0 {
			percentB[i] = (closes[i] - lower[i]) / bandWidth
		}
	}

	return map[string][]float64{
		"middle":    middle,
		"upper":     upper,
		"lower":     lower,
		"percent_b": percentB,
	}, nil
}

// HistoricalVolatility calculates annualized volatility from a rolling
// standard deviation of daily percentage returns.
type HistoricalVolatility struct {
	period      int
	tradingDays int // typically 252
}

// NewHistoricalVolatility creates a new Historical Volatility indicator.
func NewHistoricalVolatility(period, tradingDays int) *HistoricalVolatility {
	return &HistoricalVolatility{
		period:      period,
		tradingDays: tradingDays,
	}
}

func (h *HistoricalVolatility) Name() string {
	return fmt.Sprintf("HistoricalVolatility_%d", h.period)
}

func (h *HistoricalVolatility) Period() int {
	return h.period
}

func (h *HistoricalVolatility) Calculate(candles []models.Candle) ([]float64, error) {
	if h.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	result := nanSlice(n)
	closes := closePrices(candles)

	returns := make([]float64, n)
	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			returns[i] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}

	annualizationFactor := math.Sqrt(float64(h.tradingDays))
	for i := h.period; i < n; i++ {
		sd := stdDev(returns[i-h.period+1 : i+1])
		result[i] = sd * annualizationFactor * 100 // as percentage
	}

	return result, nil
}

// MaxDrawdown calculates the running drawdown from the highest close seen
// so far, as a negative percentage.
type MaxDrawdown struct{}

// NewMaxDrawdown creates a new MaxDrawdown indicator.
func NewMaxDrawdown() *MaxDrawdown {
	return &MaxDrawdown{}
}

func (m *MaxDrawdown) Name() string {
	return "MaxDrawdown"
}

func (m *MaxDrawdown) Period() int {
	return 1
}

func (m *MaxDrawdown) Calculate(candles []models.Candle) ([]float64, error) {
	n := len(candles)
	result := nanSlice(n)

	runMax := math.Inf(-1)
	for i := 0; i < n; i++ {
		if candles[i].Close > runMax {
			runMax = candles[i].Close
		}
		if runMax != 0 {
			result[i] = 100 * (candles[i].Close - runMax) / runMax
		}
	}

	return result, nil
}

// MaxDrawdownValue returns the deepest drawdown over the whole series,
// or NaN for an empty series.
func MaxDrawdownValue(candles []models.Candle) float64 {
	md := &MaxDrawdown{}
	series, _ := md.Calculate(candles)

	worst := math.NaN()
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(worst) || v < worst {
			worst = v
		}
	}
	return worst
}
