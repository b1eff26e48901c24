package analysis

import (
	"context"
	"fmt"
	"sort"

	"upstox-analyst/internal/analysis/indicators"
	"upstox-analyst/internal/intent"
	"upstox-analyst/internal/models"
)

func (d *Dispatcher) handleHistorical(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	closes := make([]float64, len(candles))
	var high, low float64
	for i, c := range candles {
		closes[i] = c.Close
		if i == 0 || c.High > high {
			high = c.High
		}
		if i == 0 || c.Low < low {
			low = c.Low
		}
	}

	return models.Ok(map[string]any{
		"symbol":        inst.Symbol,
		"period":        periodString(req.Params),
		"candles":       len(candles),
		"first_close":   val(closes[0]),
		"last_close":    val(closes[len(closes)-1]),
		"period_high":   val(high),
		"period_low":    val(low),
		"period_change": val(indicators.PeriodChange(candles)),
		"avg_volume":    val(indicators.AverageVolume(candles)),
	})
}

func (d *Dispatcher) handleStockDetails(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)

	quote, err := d.fetcher.GetQuote(ctx, inst)
	if err != nil {
		return models.Failure(err.Error())
	}

	data := map[string]any{
		"symbol":         quote.Symbol,
		"ltp":            val(quote.LTP),
		"open":           val(quote.Open),
		"high":           val(quote.High),
		"low":            val(quote.Low),
		"previous_close": val(quote.Close),
		"volume":         quote.Volume,
		"change":         val(quote.Change),
		"change_percent": val(quote.ChangePercent),
		"timestamp":      quote.Timestamp,
	}

	if d.insights != nil {
		from, to := d.window(req)
		if candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay); err == nil {
			if text, err := d.insights.GenerateInsights(ctx, quote, candles); err == nil {
				data["insights"] = text
			} else {
				d.logger.Warn().Err(err).Msg("Insight generation failed, degrading to data-only output")
			}
		}
	}

	return models.Ok(data)
}

func (d *Dispatcher) handleTrendAnalysis(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	single, multi, err := d.engine.CalculateAll(ctx, candles)
	if err != nil {
		return models.Failure(err.Error())
	}
	macd := multi["MACD_12_26_9"]

	return models.Ok(map[string]any{
		"symbol":    inst.Symbol,
		"period":    periodString(req.Params),
		"trend":     trendLabel(candles),
		"sma_20":    val(indicators.LastDefined(single["SMA_20"])),
		"sma_50":    val(indicators.LastDefined(single["SMA_50"])),
		"macd":      val(indicators.LastDefined(macd["macd"])),
		"signal":    val(indicators.LastDefined(macd["signal"])),
		"histogram": val(indicators.LastDefined(macd["histogram"])),
		"rsi":       val(indicators.LastDefined(single["RSI_14"])),
	})
}

func (d *Dispatcher) handlePriceMovement(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	returns, _ := indicators.NewReturns().Calculate(candles)
	volatility, _ := indicators.NewHistoricalVolatility(20, 252).Calculate(candles)
	rsi, _ := indicators.NewRSI(14).Calculate(candles)
	macd, _ := indicators.NewMACD(12, 26, 9).Calculate(candles)

	return models.Ok(map[string]any{
		"symbol": inst.Symbol,
		"period": periodString(req.Params),
		"momentum": map[string]any{
			"rsi":   val(indicators.LastDefined(rsi)),
			"macd":  val(indicators.LastDefined(macd["macd"])),
			"trend": trendLabel(candles),
		},
		"metrics": map[string]any{
			"avg_daily_return": val(definedMean(returns)),
			"volatility":       val(indicators.LastDefined(volatility)),
			"max_drawdown":     val(indicators.MaxDrawdownValue(candles)),
		},
	})
}

func (d *Dispatcher) handleMarketSentiment(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	sentiment := map[string]any{
		"price_strength":   val(priceStrength(candles)),
		"volume_trend":     volumeTrend(candles),
		"technical_signals": technicalSignals(candles),
		"momentum_signals": momentumSignals(candles),
	}

	data := map[string]any{
		"symbol":    inst.Symbol,
		"sentiment": sentiment,
		"summary":   sentimentSummary(candles),
	}

	if d.insights != nil {
		if text, err := d.insights.SentimentAnalysis(ctx, inst.Symbol, candles); err == nil {
			data["insights"] = text
		} else {
			d.logger.Warn().Err(err).Msg("Sentiment insight failed, degrading to indicator output")
		}
	}

	return models.Ok(data)
}

func (d *Dispatcher) handleVolumeAnalysis(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	obv, _ := indicators.NewOBV().Calculate(candles)
	vwap, _ := indicators.NewVWAP().Calculate(candles)
	high, low := volumeOutlierDays(candles)

	return models.Ok(map[string]any{
		"symbol": inst.Symbol,
		"period": periodString(req.Params),
		"volume_metrics": map[string]any{
			"average_volume":           val(indicators.AverageVolume(candles)),
			"high_volume_days":         high,
			"low_volume_days":          low,
			"price_volume_correlation": val(priceVolumeCorrelation(candles)),
			"obv":                      val(indicators.LastDefined(obv)),
			"vwap":                     val(indicators.LastDefined(vwap)),
		},
		"volume_trends": volumeTrend(candles),
	})
}

func (d *Dispatcher) handleMovingAverages(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	period := req.Params.Period
	if period <= 0 {
		period = 50
	}

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	sma, _ := indicators.NewSMA(period).Calculate(candles)
	ema, _ := indicators.NewEMA(period).Calculate(candles)
	lastClose := candles[len(candles)-1].Close
	smaValue := indicators.LastDefined(sma)

	return models.Ok(map[string]any{
		"symbol":     inst.Symbol,
		"period":     period,
		"window":     periodString(req.Params),
		"sma":        val(smaValue),
		"ema":        val(indicators.LastDefined(ema)),
		"last_close": val(lastClose),
		"signal":     maSignal(lastClose, smaValue),
	})
}

func (d *Dispatcher) handleRSI(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	period := req.Params.Period
	if period <= 0 {
		period = 14
	}

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	rsi, err := indicators.NewRSI(period).Calculate(candles)
	if err != nil {
		return models.Failure(err.Error())
	}
	value := indicators.LastDefined(rsi)

	return models.Ok(map[string]any{
		"symbol": inst.Symbol,
		"period": period,
		"window": periodString(req.Params),
		"rsi":    val(value),
		"signal": rsiSignal(value),
	})
}

func (d *Dispatcher) handleSupportResistance(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	inst := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	from, to := d.window(req)

	candles, err := d.fetcher.GetCandles(ctx, inst, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	levels, err := indicators.NewSupportResistance(20).CalculateLevels(candles)
	if err != nil {
		return models.Failure(err.Error())
	}

	return models.Ok(map[string]any{
		"symbol": inst.Symbol,
		"period": periodString(req.Params),
		"levels": map[string]any{
			"support":    levels.Support,
			"resistance": levels.Resistance,
		},
		"last_close": val(candles[len(candles)-1].Close),
	})
}

func (d *Dispatcher) handleComparison(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	first := instrumentFor(req.Matches, req.Params.Symbol, req.Params.Token)
	second := instrumentFor(req.Matches2, req.Params.Symbol2, "")
	from, to := d.window(req)

	candles1, err1 := d.fetcher.GetCandles(ctx, first, from, to, models.IntervalDay)
	candles2, err2 := d.fetcher.GetCandles(ctx, second, from, to, models.IntervalDay)
	if err1 != nil || err2 != nil {
		return models.Failure("failed to fetch comparison data")
	}

	change1 := indicators.PeriodChange(candles1)
	change2 := indicators.PeriodChange(candles2)
	winner := first.Symbol
	if change2 > change1 {
		winner = second.Symbol
	}

	return models.Ok(map[string]any{
		"period": periodString(req.Params),
		"comparison": map[string]any{
			first.Symbol: map[string]any{
				"period_change": val(change1),
				"max_drawdown":  val(indicators.MaxDrawdownValue(candles1)),
				"avg_volume":    val(indicators.AverageVolume(candles1)),
			},
			second.Symbol: map[string]any{
				"period_change": val(change2),
				"max_drawdown":  val(indicators.MaxDrawdownValue(candles2)),
				"avg_volume":    val(indicators.AverageVolume(candles2)),
			},
		},
		"outperformer": winner,
	})
}

func (d *Dispatcher) handleSector(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	constituents, ok := sectorConstituents(req.Params.Sector)
	if !ok {
		return models.Failure(fmt.Sprintf("unknown sector: %s", req.Params.Sector))
	}
	from, to := d.window(req)

	fetched, err := d.fetcher.GetMultiCandles(ctx, constituents, from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}

	perSymbol := map[string]any{}
	var total float64
	var topSymbol string
	topChange := 0.0
	first := true
	for symbol, candles := range fetched {
		change := indicators.PeriodChange(candles)
		perSymbol[symbol] = val(change)
		total += change
		if first || change > topChange {
			topSymbol, topChange, first = symbol, change, false
		}
	}
	if len(fetched) == 0 {
		return models.Failure(fmt.Sprintf("no data for sector: %s", req.Params.Sector))
	}

	return models.Ok(map[string]any{
		"sector": req.Params.Sector,
		"period": periodString(req.Params),
		"metrics": map[string]any{
			"average_return": val(total / float64(len(fetched))),
			"constituents":   perSymbol,
		},
		"top_performer": map[string]any{
			"symbol":        topSymbol,
			"period_change": val(topChange),
		},
	})
}

func (d *Dispatcher) handleTopPerformers(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult {
	count := req.Params.Count
	if count <= 0 {
		count = 10
	}
	from, to := d.window(req)

	fetched, err := d.fetcher.GetMultiCandles(ctx, liquidUniverse(), from, to, models.IntervalDay)
	if err != nil {
		return models.Failure(err.Error())
	}
	if len(fetched) == 0 {
		return models.Failure("no data for performance ranking")
	}

	type ranked struct {
		Symbol string
		Change float64
	}
	rankings := make([]ranked, 0, len(fetched))
	for symbol, candles := range fetched {
		rankings = append(rankings, ranked{symbol, indicators.PeriodChange(candles)})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Change == rankings[j].Change {
			return rankings[i].Symbol < rankings[j].Symbol
		}
		return rankings[i].Change > rankings[j].Change
	})
	if len(rankings) > count {
		rankings = rankings[:count]
	}

	performers := make([]map[string]any, len(rankings))
	for i, r := range rankings {
		performers[i] = map[string]any{
			"rank":          i + 1,
			"symbol":        r.Symbol,
			"period_change": val(r.Change),
		}
	}

	return models.Ok(map[string]any{
		"period":     periodString(req.Params),
		"count":      len(performers),
		"performers": performers,
	})
}
