// Package analysis routes parsed requests to per-intent handlers that
// fetch market data, run indicator calculations, and build the uniform
// result envelope.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"upstox-analyst/internal/analysis/indicators"
	"upstox-analyst/internal/intent"
	"upstox-analyst/internal/models"
)

// Fetcher is the market data surface the handlers consume. Satisfied by
// *market.Client.
type Fetcher interface {
	GetQuote(ctx context.Context, inst models.Instrument) (*models.Quote, error)
	GetCandles(ctx context.Context, inst models.Instrument, from, to time.Time, interval models.Interval) ([]models.Candle, error)
	GetMultiCandles(ctx context.Context, instruments []models.Instrument, from, to time.Time, interval models.Interval) (map[string][]models.Candle, error)
}

// InsightProvider augments indicator output with model-generated
// commentary. Optional; failures degrade to indicator-only output.
type InsightProvider interface {
	GenerateInsights(ctx context.Context, quote *models.Quote, candles []models.Candle) (string, error)
	SentimentAnalysis(ctx context.Context, symbol string, candles []models.Candle) (string, error)
}

// Handler produces the result for one intent.
type Handler func(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult

// Dispatcher owns the closed intent-to-handler table.
type Dispatcher struct {
	fetcher  Fetcher
	insights InsightProvider
	logger   zerolog.Logger
	now      func() time.Time

	// engine runs the trend-analysis indicator batch in parallel.
	engine   *indicators.Engine
	handlers map[intent.Intent]Handler
}

// NewDispatcher wires the handler table. insights may be nil.
func NewDispatcher(fetcher Fetcher, insights InsightProvider, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		fetcher:  fetcher,
		insights: insights,
		logger:   logger,
		now:      time.Now,
		engine:   indicators.NewEngine(4),
	}
	d.engine.RegisterIndicator(indicators.NewSMA(20))
	d.engine.RegisterIndicator(indicators.NewSMA(50))
	d.engine.RegisterIndicator(indicators.NewRSI(14))
	d.engine.RegisterMultiIndicator(indicators.NewMACD(12, 26, 9))
	d.handlers = map[intent.Intent]Handler{
		intent.IntentHistorical:        d.handleHistorical,
		intent.IntentStockDetails:      d.handleStockDetails,
		intent.IntentTrendAnalysis:     d.handleTrendAnalysis,
		intent.IntentPriceMovement:     d.handlePriceMovement,
		intent.IntentMarketSentiment:   d.handleMarketSentiment,
		intent.IntentVolumeAnalysis:    d.handleVolumeAnalysis,
		intent.IntentMovingAverages:    d.handleMovingAverages,
		intent.IntentRSIAnalysis:       d.handleRSI,
		intent.IntentSupportResistance: d.handleSupportResistance,
		intent.IntentComparison:        d.handleComparison,
		intent.IntentSectorPerformance: d.handleSector,
		intent.IntentTopPerformers:     d.handleTopPerformers,
	}
	return d
}

// Dispatch routes the request. Intents outside the handler table fail
// with the unsupported-analysis message.
func (d *Dispatcher) Dispatch(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	handler, ok := d.handlers[req.Intent]
	if !ok {
		return models.Failure(fmt.Sprintf("unsupported analysis type: %s", req.Intent))
	}

	result := handler(ctx, req)
	d.logger.Info().
		Str("intent", string(req.Intent)).
		Str("symbol", req.Params.Symbol).
		Bool("success", result.Success).
		Msg("Analysis dispatched")
	return result
}

// SupportedIntents lists the intents with a handler, for help output.
func (d *Dispatcher) SupportedIntents() []intent.Intent {
	out := make([]intent.Intent, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	return out
}

// instrumentFor picks the resolved instrument when resolution found
// exactly one candidate, falling back to an NSE equity shell.
func instrumentFor(matches []models.Instrument, symbol, token string) models.Instrument {
	if len(matches) == 1 {
		return matches[0]
	}
	return models.Instrument{
		Exchange: models.NSE,
		Symbol:   symbol,
		Type:     models.TypeEquity,
		Token:    token,
	}
}

// window returns the fetch range for a request, defaulting to 30 days
// when the matcher attached no from-date.
func (d *Dispatcher) window(req intent.ParsedRequest) (time.Time, time.Time) {
	to := d.now()
	from := req.Params.FromDate
	if from.IsZero() {
		from = to.Add(-30 * 24 * time.Hour)
	}
	return from, to
}

func periodString(p intent.Params) string {
	if p.Duration == 0 {
		return "30 day(s)"
	}
	return fmt.Sprintf("%d %s(s)", p.Duration, p.Unit)
}

// val rounds a metric for display and maps NaN to nil so results stay
// JSON-encodable.
func val(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return math.Round(x*100) / 100
}
