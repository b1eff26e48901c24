// Package intent maps free-text prompts to analysis intents with
// structured parameters.
package intent

import (
	"time"

	"upstox-analyst/internal/models"
)

// Intent identifies one kind of analysis query.
type Intent string

const (
	IntentUnknown           Intent = ""
	IntentHistorical        Intent = "historical"
	IntentTopPerformers     Intent = "top_performers"
	IntentTrendAnalysis     Intent = "trend_analysis"
	IntentStockDetails      Intent = "stock_details"
	IntentPriceMovement     Intent = "price_movement"
	IntentMarketSentiment   Intent = "market_sentiment"
	IntentVolumeAnalysis    Intent = "volume_analysis"
	IntentSectorPerformance Intent = "sector_performance"
	IntentComparison        Intent = "comparison"
	IntentSupportResistance Intent = "support_resistance"
	IntentMovingAverages    Intent = "moving_averages"
	IntentRSIAnalysis       Intent = "rsi_analysis"
	IntentDividendHistory   Intent = "dividend_history"
	IntentNewsSentiment     Intent = "news_sentiment"
)

// Params holds the intent-specific parameters extracted from a prompt.
type Params struct {
	Symbol   string
	Symbol2  string // second leg of a comparison
	Sector   string
	Token    string // instrument token, set after auto-resolution
	Period   int    // indicator period (moving average window, RSI period)
	Duration int
	Unit     string // day, week, month, year
	Count    int    // top-performers list size
	FromDate time.Time
}

// ParsedRequest is the outcome of parsing one prompt.
type ParsedRequest struct {
	Intent   Intent
	Params   Params
	Matches  []models.Instrument // candidates for Symbol
	Matches2 []models.Instrument // candidates for Symbol2 (comparison only)
	Original string
}

// Understood reports whether a pattern matched the prompt.
func (p ParsedRequest) Understood() bool {
	return p.Intent != IntentUnknown
}

// Resolved reports whether the symbol parameter resolved to exactly one
// instrument. Intents without a symbol parameter are trivially resolved.
func (p ParsedRequest) Resolved() bool {
	if p.Params.Symbol == "" {
		return true
	}
	return len(p.Matches) == 1
}

// maxSpanDays caps a requested window at 200 years. Durations beyond the
// cap would overflow the nanosecond span and push the from-date into the
// future.
const maxSpanDays = 200 * 365

// durationToSpan converts (duration, unit) into a time span using the
// fixed approximation table: day=1d, week=7d, month=30d, year=365d.
// Spans are clamped to maxSpanDays so from-date never exceeds now.
func durationToSpan(duration int, unit string) time.Duration {
	day := 24 * time.Hour
	factor := 1
	switch unit {
	case "week":
		factor = 7
	case "month":
		factor = 30
	case "year":
		factor = 365
	}

	if duration <= 0 {
		return 0
	}
	if duration > maxSpanDays/factor {
		return maxSpanDays * day
	}
	return time.Duration(duration*factor) * day
}
