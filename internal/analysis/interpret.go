package analysis

import (
	"math"

	"upstox-analyst/internal/models"
)

// trendLabel classifies the series against its mean close and the last
// bar's direction: Bullish, Bullish with correction, Bearish, Bearish
// with pullback.
func trendLabel(candles []models.Candle) string {
	if len(candles) < 2 {
		return "Neutral"
	}

	var sum float64
	for _, c := range candles {
		sum += c.Close
	}
	mean := sum / float64(len(candles))
	last := candles[len(candles)-1].Close
	prev := candles[len(candles)-2].Close

	if last > mean {
		if last > prev {
			return "Bullish"
		}
		return "Bullish with correction"
	}
	if last < prev {
		return "Bearish"
	}
	return "Bearish with pullback"
}

// priceStrength positions the last close inside the period's close range,
// 0 at the low and 1 at the high.
func priceStrength(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return math.NaN()
	}
	lo, hi := candles[0].Close, candles[0].Close
	for _, c := range candles {
		if c.Close < lo {
			lo = c.Close
		}
		if c.Close > hi {
			hi = c.Close
		}
	}
	if hi == lo {
		return 0.5
	}
	return (candles[len(candles)-1].Close - lo) / (hi - lo)
}

func volumeTrend(candles []models.Candle) map[string]any {
	if len(candles) == 0 {
		return map[string]any{"avg_trend": "flat"}
	}

	increasing, decreasing := true, true
	var sum float64
	for i, c := range candles {
		sum += float64(c.Volume)
		if i > 0 {
			if c.Volume < candles[i-1].Volume {
				increasing = false
			}
			if c.Volume > candles[i-1].Volume {
				decreasing = false
			}
		}
	}
	avg := sum / float64(len(candles))

	trend := "down"
	if float64(candles[len(candles)-1].Volume) > avg {
		trend = "up"
	}
	return map[string]any{
		"increasing": increasing,
		"decreasing": decreasing,
		"avg_trend":  trend,
	}
}

func technicalSignals(candles []models.Candle) map[string]string {
	if len(candles) == 0 {
		return map[string]string{}
	}

	var closeSum, volSum float64
	for _, c := range candles {
		closeSum += c.Close
		volSum += float64(c.Volume)
	}
	n := float64(len(candles))
	last := candles[len(candles)-1]

	maSignal := "bearish"
	if last.Close > closeSum/n {
		maSignal = "bullish"
	}
	volSignal := "low"
	if float64(last.Volume) > volSum/n {
		volSignal = "high"
	}
	return map[string]string{
		"ma_signal":     maSignal,
		"volume_signal": volSignal,
	}
}

func momentumSignals(candles []models.Candle) map[string]string {
	if len(candles) < 2 {
		return map[string]string{}
	}
	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	price := "negative"
	if last.Close > prev.Close {
		price = "positive"
	}
	volume := "negative"
	if last.Volume > prev.Volume {
		volume = "positive"
	}
	return map[string]string{
		"price_momentum":  price,
		"volume_momentum": volume,
	}
}

// sentimentSummary votes the individual signals into one label.
func sentimentSummary(candles []models.Candle) string {
	tech := technicalSignals(candles)
	momentum := momentumSignals(candles)

	score := 0
	if tech["ma_signal"] == "bullish" {
		score++
	} else {
		score--
	}
	if momentum["price_momentum"] == "positive" {
		score++
	} else {
		score--
	}
	if momentum["volume_momentum"] == "positive" && tech["volume_signal"] == "high" {
		score++
	}

	switch {
	case score >= 2:
		return "Strongly positive"
	case score == 1:
		return "Positive"
	case score == 0:
		return "Neutral"
	case score == -1:
		return "Negative"
	default:
		return "Strongly negative"
	}
}

func maSignal(lastClose, ma float64) string {
	if math.IsNaN(ma) {
		return "insufficient data"
	}
	if lastClose > ma {
		return "price above average (bullish)"
	}
	if lastClose < ma {
		return "price below average (bearish)"
	}
	return "price at average"
}

func rsiSignal(rsi float64) string {
	switch {
	case math.IsNaN(rsi):
		return "insufficient data"
	case rsi >= 70:
		return "overbought"
	case rsi <= 30:
		return "oversold"
	default:
		return "neutral"
	}
}

// definedMean averages the non-NaN values of a series.
func definedMean(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// volumeOutlierDays counts days more than one standard deviation above
// and below the average volume.
func volumeOutlierDays(candles []models.Candle) (high, low int) {
	if len(candles) == 0 {
		return 0, 0
	}

	var sum float64
	for _, c := range candles {
		sum += float64(c.Volume)
	}
	avg := sum / float64(len(candles))

	var variance float64
	for _, c := range candles {
		d := float64(c.Volume) - avg
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(candles)))

	for _, c := range candles {
		v := float64(c.Volume)
		if v > avg+std {
			high++
		} else if v < avg-std {
			low++
		}
	}
	return high, low
}

// priceVolumeCorrelation is the Pearson correlation between closes and
// volumes over the period.
func priceVolumeCorrelation(candles []models.Candle) float64 {
	n := len(candles)
	if n < 2 {
		return math.NaN()
	}

	var sumP, sumV float64
	for _, c := range candles {
		sumP += c.Close
		sumV += float64(c.Volume)
	}
	meanP := sumP / float64(n)
	meanV := sumV / float64(n)

	var cov, varP, varV float64
	for _, c := range candles {
		dp := c.Close - meanP
		dv := float64(c.Volume) - meanV
		cov += dp * dv
		varP += dp * dp
		varV += dv * dv
	}
	if varP == 0 || varV == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varP*varV)
}
