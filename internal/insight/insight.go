// Package insight generates model-written commentary on top of fetched
// market data, via an OpenAI-compatible chat completions endpoint.
package insight

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"
	apperrors "upstox-analyst/internal/errors"
	"upstox-analyst/internal/analysis/indicators"
	"upstox-analyst/internal/models"
)

const systemPrompt = "You are a concise market analyst for Indian equities. " +
	"Answer in a few short paragraphs, cite only the numbers provided, and " +
	"never give investment advice."

// Config carries the completion endpoint settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Analyzer runs single-turn completions over prepared market summaries.
type Analyzer struct {
	client *openai.Client
	model  string
	max    int
	logger zerolog.Logger
}

// NewAnalyzer builds an Analyzer against the configured endpoint.
func NewAnalyzer(cfg Config, logger zerolog.Logger) *Analyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "grok-2-latest"
	}
	max := cfg.MaxTokens
	if max <= 0 {
		max = 512
	}
	return &Analyzer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		max:    max,
		logger: logger,
	}
}

// GenerateInsights asks the model to comment on a quote plus its recent
// history.
func (a *Analyzer) GenerateInsights(ctx context.Context, quote *models.Quote, candles []models.Candle) (string, error) {
	return a.complete(ctx, "insights", buildInsightPrompt(quote, candles))
}

// SentimentAnalysis asks for a sentiment read over the recent history.
func (a *Analyzer) SentimentAnalysis(ctx context.Context, symbol string, candles []models.Candle) (string, error) {
	prompt := fmt.Sprintf(
		"Assess the market sentiment for %s from this price action:\n%s\nClassify it as positive, negative or neutral and explain briefly.",
		symbol, historySummary(candles))
	return a.complete(ctx, "sentiment", prompt)
}

func (a *Analyzer) complete(ctx context.Context, operation, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: a.max,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", apperrors.NewInsightError(a.model, operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewInsightError(a.model, operation, apperrors.ErrNoData)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	a.logger.Debug().Str("operation", operation).Int("chars", len(text)).Msg("Insight generated")
	return text, nil
}

// buildInsightPrompt renders the quote and historical summary the model
// comments on.
func buildInsightPrompt(quote *models.Quote, candles []models.Candle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze %s (NSE).\n\n", quote.Symbol)
	fmt.Fprintf(&b, "Current price: %.2f\n", quote.LTP)
	fmt.Fprintf(&b, "Day range: %.2f - %.2f\n", quote.Low, quote.High)
	fmt.Fprintf(&b, "Open: %.2f, previous close: %.2f\n", quote.Open, quote.Close)
	fmt.Fprintf(&b, "Volume: %d\n", quote.Volume)
	fmt.Fprintf(&b, "Day change: %.2f%%\n\n", quote.ChangePercent)

	if change, ok := trailingChange(candles, 1); ok {
		fmt.Fprintf(&b, "1-day change: %.2f%%\n", change)
	}
	if change, ok := trailingChange(candles, 5); ok {
		fmt.Fprintf(&b, "1-week change: %.2f%%\n", change)
	}
	if change, ok := trailingChange(candles, 21); ok {
		fmt.Fprintf(&b, "1-month change: %.2f%%\n", change)
	}

	b.WriteString("\n")
	b.WriteString(historySummary(candles))
	b.WriteString("\nSummarize the price action and notable risks.")
	return b.String()
}

// historySummary condenses candles into period statistics.
func historySummary(candles []models.Candle) string {
	if len(candles) == 0 {
		return "No historical data available."
	}

	high, low := candles[0].High, candles[0].Low
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	return fmt.Sprintf(
		"History (%d sessions): first close %.2f, last close %.2f, period change %.2f%%, high %.2f, low %.2f, average volume %.0f.",
		len(candles),
		candles[0].Close,
		candles[len(candles)-1].Close,
		indicators.PeriodChange(candles),
		high, low,
		indicators.AverageVolume(candles))
}

// trailingChange computes the close-over-close change across the last n
// trading sessions.
func trailingChange(candles []models.Candle, sessions int) (float64, bool) {
	if len(candles) <= sessions {
		return 0, false
	}
	ref := candles[len(candles)-1-sessions].Close
	if ref == 0 {
		return 0, false
	}
	return (candles[len(candles)-1].Close - ref) / ref * 100, true
}
