package chat

import (
	"fmt"
	"sort"
	"strings"

	"upstox-analyst/internal/intent"
	"upstox-analyst/internal/models"
	"upstox-analyst/pkg/utils"
)

// Render formats a dispatch result for the terminal. Failures render the
// error; successes get a per-intent layout with a generic fallback.
func Render(req intent.ParsedRequest, result models.AnalysisResult) string {
	if !result.Success {
		return fmt.Sprintf("Error: %s", result.Error)
	}

	switch req.Intent {
	case intent.IntentStockDetails:
		return renderStockDetails(result.Data)
	case intent.IntentHistorical:
		return renderHistorical(result.Data)
	case intent.IntentTrendAnalysis:
		return renderTrend(result.Data)
	case intent.IntentPriceMovement:
		return renderPriceMovement(result.Data)
	case intent.IntentMarketSentiment:
		return renderSentiment(result.Data)
	case intent.IntentVolumeAnalysis:
		return renderVolume(result.Data)
	case intent.IntentMovingAverages:
		return renderMovingAverages(result.Data)
	case intent.IntentRSIAnalysis:
		return renderRSI(result.Data)
	case intent.IntentSupportResistance:
		return renderLevels(result.Data)
	case intent.IntentComparison:
		return renderComparison(result.Data)
	case intent.IntentSectorPerformance:
		return renderSector(result.Data)
	case intent.IntentTopPerformers:
		return renderTopPerformers(result.Data)
	default:
		return renderGeneric(result.Data)
	}
}

func renderStockDetails(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (NSE)\n\n", str(data, "symbol"))
	fmt.Fprintf(&b, "Current Price:  %s\n", rupees(data, "ltp"))
	fmt.Fprintf(&b, "Day High:       %s\n", rupees(data, "high"))
	fmt.Fprintf(&b, "Day Low:        %s\n", rupees(data, "low"))
	fmt.Fprintf(&b, "Open:           %s\n", rupees(data, "open"))
	fmt.Fprintf(&b, "Previous Close: %s\n", rupees(data, "previous_close"))
	fmt.Fprintf(&b, "Volume:         %s\n", volume(data, "volume"))
	fmt.Fprintf(&b, "Change:         %s\n", percent(data, "change_percent"))
	appendInsights(&b, data)
	return strings.TrimRight(b.String(), "\n")
}

func renderHistorical(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s of history (%v sessions)\n\n", str(data, "symbol"), str(data, "period"), data["candles"])
	fmt.Fprintf(&b, "First Close:   %s\n", rupees(data, "first_close"))
	fmt.Fprintf(&b, "Last Close:    %s\n", rupees(data, "last_close"))
	fmt.Fprintf(&b, "Period High:   %s\n", rupees(data, "period_high"))
	fmt.Fprintf(&b, "Period Low:    %s\n", rupees(data, "period_low"))
	fmt.Fprintf(&b, "Period Change: %s\n", percent(data, "period_change"))
	fmt.Fprintf(&b, "Avg Volume:    %s\n", volume(data, "avg_volume"))
	return strings.TrimRight(b.String(), "\n")
}

func renderTrend(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — trend over %s\n\n", str(data, "symbol"), str(data, "period"))
	fmt.Fprintf(&b, "Trend:     %s\n", str(data, "trend"))
	fmt.Fprintf(&b, "SMA(20):   %s\n", rupees(data, "sma_20"))
	fmt.Fprintf(&b, "SMA(50):   %s\n", rupees(data, "sma_50"))
	fmt.Fprintf(&b, "MACD:      %s (signal %s)\n", num(data, "macd"), num(data, "signal"))
	fmt.Fprintf(&b, "RSI(14):   %s\n", num(data, "rsi"))
	return strings.TrimRight(b.String(), "\n")
}

func renderPriceMovement(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — price movement over %s\n\n", str(data, "symbol"), str(data, "period"))

	if metrics, ok := data["metrics"].(map[string]any); ok {
		fmt.Fprintf(&b, "Avg Daily Return: %s\n", percent(metrics, "avg_daily_return"))
		fmt.Fprintf(&b, "Volatility (ann): %s\n", percent(metrics, "volatility"))
		fmt.Fprintf(&b, "Max Drawdown:     %s\n", percent(metrics, "max_drawdown"))
	}
	if momentum, ok := data["momentum"].(map[string]any); ok {
		fmt.Fprintf(&b, "Trend:            %s\n", str(momentum, "trend"))
		fmt.Fprintf(&b, "RSI:              %s\n", num(momentum, "rsi"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSentiment(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — market sentiment\n\n", str(data, "symbol"))
	fmt.Fprintf(&b, "Summary: %s\n", str(data, "summary"))

	if sentiment, ok := data["sentiment"].(map[string]any); ok {
		fmt.Fprintf(&b, "Price Strength: %s\n", num(sentiment, "price_strength"))
		if signals, ok := sentiment["technical_signals"].(map[string]string); ok {
			fmt.Fprintf(&b, "MA Signal:      %s\n", signals["ma_signal"])
			fmt.Fprintf(&b, "Volume Signal:  %s\n", signals["volume_signal"])
		}
		if signals, ok := sentiment["momentum_signals"].(map[string]string); ok {
			fmt.Fprintf(&b, "Price Momentum: %s\n", signals["price_momentum"])
		}
	}
	appendInsights(&b, data)
	return strings.TrimRight(b.String(), "\n")
}

func renderVolume(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — volume analysis over %s\n\n", str(data, "symbol"), str(data, "period"))

	if metrics, ok := data["volume_metrics"].(map[string]any); ok {
		fmt.Fprintf(&b, "Average Volume:   %s\n", volume(metrics, "average_volume"))
		fmt.Fprintf(&b, "High Volume Days: %v\n", metrics["high_volume_days"])
		fmt.Fprintf(&b, "Low Volume Days:  %v\n", metrics["low_volume_days"])
		fmt.Fprintf(&b, "Price-Volume Cor: %s\n", num(metrics, "price_volume_correlation"))
		fmt.Fprintf(&b, "VWAP:             %s\n", rupees(metrics, "vwap"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMovingAverages(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %v-day moving averages\n\n", str(data, "symbol"), data["period"])
	fmt.Fprintf(&b, "SMA:        %s\n", rupees(data, "sma"))
	fmt.Fprintf(&b, "EMA:        %s\n", rupees(data, "ema"))
	fmt.Fprintf(&b, "Last Close: %s\n", rupees(data, "last_close"))
	fmt.Fprintf(&b, "Signal:     %s\n", str(data, "signal"))
	return strings.TrimRight(b.String(), "\n")
}

func renderRSI(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — RSI(%v) over %s\n\n", str(data, "symbol"), data["period"], str(data, "window"))
	fmt.Fprintf(&b, "RSI:    %s\n", num(data, "rsi"))
	fmt.Fprintf(&b, "Signal: %s\n", str(data, "signal"))
	return strings.TrimRight(b.String(), "\n")
}

func renderLevels(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — support and resistance over %s\n\n", str(data, "symbol"), str(data, "period"))
	fmt.Fprintf(&b, "Last Close: %s\n", rupees(data, "last_close"))

	if levels, ok := data["levels"].(map[string]any); ok {
		fmt.Fprintf(&b, "Support:    %s\n", levelList(levels["support"]))
		fmt.Fprintf(&b, "Resistance: %s\n", levelList(levels["resistance"]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderComparison(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparison over %s\n\n", str(data, "period"))

	if comparison, ok := data["comparison"].(map[string]any); ok {
		symbols := make([]string, 0, len(comparison))
		for symbol := range comparison {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			metrics, _ := comparison[symbol].(map[string]any)
			fmt.Fprintf(&b, "%s: change %s, max drawdown %s, avg volume %s\n",
				symbol, percent(metrics, "period_change"), percent(metrics, "max_drawdown"), volume(metrics, "avg_volume"))
		}
	}
	fmt.Fprintf(&b, "\nOutperformer: %s\n", str(data, "outperformer"))
	return strings.TrimRight(b.String(), "\n")
}

func renderSector(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s sector over %s\n\n", str(data, "sector"), str(data, "period"))

	if metrics, ok := data["metrics"].(map[string]any); ok {
		fmt.Fprintf(&b, "Average Return: %s\n", percent(metrics, "average_return"))
		if constituents, ok := metrics["constituents"].(map[string]any); ok {
			symbols := make([]string, 0, len(constituents))
			for symbol := range constituents {
				symbols = append(symbols, symbol)
			}
			sort.Strings(symbols)
			for _, symbol := range symbols {
				fmt.Fprintf(&b, "  %-12s %s\n", symbol, formatAny(constituents[symbol], "%"))
			}
		}
	}
	if top, ok := data["top_performer"].(map[string]any); ok {
		fmt.Fprintf(&b, "Top Performer:  %s (%s)\n", str(top, "symbol"), percent(top, "period_change"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTopPerformers(data map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Top %v performers over %s\n\n", data["count"], str(data, "period"))

	if performers, ok := data["performers"].([]map[string]any); ok {
		for _, p := range performers {
			fmt.Fprintf(&b, "%2v. %-12s %s\n", p["rank"], p["symbol"], formatAny(p["period_change"], "%"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderGeneric(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, data[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func appendInsights(b *strings.Builder, data map[string]any) {
	if text, ok := data["insights"].(string); ok && text != "" {
		fmt.Fprintf(b, "\nAnalyst Notes:\n%s\n", text)
	}
}

// Field accessors tolerant of missing keys and nil metrics.

func str(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return "n/a"
}

func floatField(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func num(data map[string]any, key string) string {
	if v, ok := floatField(data, key); ok {
		return fmt.Sprintf("%.2f", v)
	}
	return "n/a"
}

func rupees(data map[string]any, key string) string {
	if v, ok := floatField(data, key); ok {
		return utils.FormatIndianCurrency(v)
	}
	return "n/a"
}

func percent(data map[string]any, key string) string {
	if v, ok := floatField(data, key); ok {
		return utils.FormatPercent(v)
	}
	return "n/a"
}

func volume(data map[string]any, key string) string {
	if v, ok := floatField(data, key); ok {
		return utils.FormatQuantity(int64(v))
	}
	return "n/a"
}

func formatAny(v any, suffix string) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f%s", x, suffix)
	case nil:
		return "n/a"
	default:
		return fmt.Sprintf("%v%s", x, suffix)
	}
}

func levelList(v any) string {
	levels, ok := v.([]float64)
	if !ok || len(levels) == 0 {
		return "none identified"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = utils.FormatIndianCurrency(l)
	}
	return strings.Join(parts, ", ")
}
