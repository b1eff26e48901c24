package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"upstox-analyst/internal/logging"
	"upstox-analyst/internal/models"
)

// Searcher resolves a free-text symbol query to instrument candidates.
type Searcher interface {
	Search(query string, limit int) []models.Instrument
}

// rule binds an intent to its pattern. Rules are evaluated in declared
// order and the first match wins; keyword-specific intents are listed
// before the loose comparison pattern so that prompts like "support and
// resistance" are not swallowed by its "X and Y" capture.
type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

var rules = []rule{
	{IntentHistorical, regexp.MustCompile(`(?i)(?:get|show|display)\s+(?:me\s+)?(\d+)\s+(year|month|day|week)s?\s+(?:data|history)\s+(?:of\s+)?([A-Za-z\s]+)`)},
	{IntentTopPerformers, regexp.MustCompile(`(?i)(?:show|get|display)\s+top\s+(\d+)\s+(?:performing\s+)?stocks\s+(?:in|for|over)\s+(?:the\s+)?(?:last\s+)?(\d+)\s+(day|month|week)s?`)},
	{IntentTrendAnalysis, regexp.MustCompile(`(?i)(?:show|get|analyze|give)\s+(?:me\s+)?(?:a\s+)?trend\s+analysis\s+(?:of\s+)?([A-Za-z\s]+)?`)},
	{IntentStockDetails, regexp.MustCompile(`(?i)(?:get|show|display)\s+(?:me\s+)?(?:the\s+)?(?:stock\s+)?(?:details|data|info)\s+(?:of\s+)?([A-Za-z\s]+)`)},
	{IntentPriceMovement, regexp.MustCompile(`(?i)(?:analyze|show)\s+(?:the\s+)?price\s+movement\s+(?:of\s+)?([A-Za-z\s]+?)\s+(?:in|for|over)\s+(?:the\s+)?(?:last\s+)?(\d+)\s+(day|month|week)s?`)},
	{IntentMarketSentiment, regexp.MustCompile(`(?i)(?:what|how)\s+is\s+(?:the\s+)?market\s+sentiment\s+(?:for\s+)?([A-Za-z\s]+)?`)},
	{IntentVolumeAnalysis, regexp.MustCompile(`(?i)(?:analyze|show)\s+(?:the\s+)?volume\s+(?:analysis|data)\s+(?:of\s+)?([A-Za-z\s]+)`)},
	{IntentSectorPerformance, regexp.MustCompile(`(?i)(?:how|what)\s+is\s+(?:the\s+)?([A-Za-z\s]+)\s+sector\s+(?:performance|doing)`)},
	{IntentSupportResistance, regexp.MustCompile(`(?i)(?:show|get|find)\s+(?:the\s+)?support\s+and\s+resistance\s+(?:levels\s+)?(?:for\s+)?([A-Za-z\s]+)`)},
	{IntentMovingAverages, regexp.MustCompile(`(?i)(?:show|get|calculate)\s+(?:the\s+)?(?:(\d+)\s+day\s+)?moving\s+average\s+(?:for\s+)?([A-Za-z\s]+)`)},
	{IntentRSIAnalysis, regexp.MustCompile(`(?i)(?:show|get|calculate)\s+(?:the\s+)?rsi\s+(?:analysis\s+)?(?:for\s+)?([A-Za-z\s]+)`)},
	{IntentDividendHistory, regexp.MustCompile(`(?i)(?:show|get)\s+(?:the\s+)?dividend\s+history\s+(?:of\s+)?([A-Za-z\s]+)`)},
	{IntentNewsSentiment, regexp.MustCompile(`(?i)(?:show|get)\s+(?:the\s+)?news\s+sentiment\s+(?:for\s+)?([A-Za-z\s]+)`)},
	{IntentComparison, regexp.MustCompile(`(?i)(?:compare|show)\s+(?:the\s+)?(?:performance\s+)?(?:of\s+)?([A-Za-z\s]+?)\s+(?:with|vs|and)\s+([A-Za-z\s]+)`)},
}

// Matcher parses prompts against the rule table and auto-resolves symbol
// parameters through the instrument directory.
type Matcher struct {
	searcher Searcher
	logger   zerolog.Logger
	now      func() time.Time
}

// NewMatcher creates a Matcher backed by the given instrument searcher.
func NewMatcher(searcher Searcher, logger zerolog.Logger) *Matcher {
	return &Matcher{
		searcher: searcher,
		logger:   logger,
		now:      time.Now,
	}
}

// Parse maps a prompt to a ParsedRequest. An unmatched prompt yields
// IntentUnknown; callers must treat that as "could not understand".
func (m *Matcher) Parse(prompt string) ParsedRequest {
	req := ParsedRequest{Original: prompt}

	for _, r := range rules {
		groups := r.pattern.FindStringSubmatch(prompt)
		if groups == nil {
			continue
		}

		req.Intent = r.intent
		req.Params = m.extractParams(r.intent, groups)
		break
	}

	if !req.Understood() {
		m.logger.Debug().Str("prompt", prompt).Msg("No intent pattern matched")
		return req
	}

	m.resolve(&req)

	m.logger.Debug().
		Str("intent", string(req.Intent)).
		Str("symbol", req.Params.Symbol).
		Int("candidates", len(req.Matches)).
		Msg("Prompt parsed")

	return req
}

func (m *Matcher) extractParams(in Intent, groups []string) Params {
	now := m.now()

	switch in {
	case IntentHistorical, IntentPriceMovement:
		var p Params
		if in == IntentHistorical {
			p.Duration = atoi(groups[1])
			p.Unit = strings.ToLower(groups[2])
			p.Symbol = strings.TrimSpace(groups[3])
		} else {
			p.Symbol = strings.TrimSpace(groups[1])
			p.Duration = atoi(groups[2])
			p.Unit = strings.ToLower(groups[3])
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	case IntentTopPerformers:
		p := Params{
			Count:    atoi(groups[1]),
			Duration: atoi(groups[2]),
			Unit:     strings.ToLower(groups[3]),
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	case IntentMovingAverages:
		period := 50
		if groups[1] != "" {
			period = atoi(groups[1])
		}
		p := Params{
			Symbol:   strings.TrimSpace(groups[2]),
			Period:   period,
			Duration: period,
			Unit:     "day",
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	case IntentComparison:
		p := Params{
			Symbol:   strings.TrimSpace(groups[1]),
			Symbol2:  strings.TrimSpace(groups[2]),
			Duration: 30,
			Unit:     "day",
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	case IntentSectorPerformance:
		p := Params{
			Sector:   strings.TrimSpace(groups[1]),
			Duration: 30,
			Unit:     "day",
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	case IntentSupportResistance:
		p := Params{
			Symbol:   strings.TrimSpace(groups[1]),
			Duration: 90, // longer range gives steadier levels
			Unit:     "day",
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	case IntentRSIAnalysis:
		p := Params{
			Symbol:   strings.TrimSpace(groups[1]),
			Period:   14,
			Duration: 30,
			Unit:     "day",
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p

	default:
		// Simple symbol-only intents share a 30-day default window.
		p := Params{
			Symbol:   strings.TrimSpace(groups[1]),
			Duration: 30,
			Unit:     "day",
		}
		p.FromDate = now.Add(-durationToSpan(p.Duration, p.Unit))
		return p
	}
}

// resolve runs directory search for the symbol parameters. Exactly one
// candidate rewrites the symbol to its canonical trading symbol and
// attaches the instrument token; zero or many candidates pass through
// unresolved for the caller to surface.
func (m *Matcher) resolve(req *ParsedRequest) {
	if m.searcher == nil {
		return
	}

	if req.Intent == IntentComparison {
		req.Matches = m.searcher.Search(req.Params.Symbol, 10)
		req.Matches2 = m.searcher.Search(req.Params.Symbol2, 10)
		return
	}

	if req.Params.Symbol == "" {
		return
	}

	req.Matches = m.searcher.Search(req.Params.Symbol, 10)
	if len(req.Matches) == 1 {
		req.Params.Symbol = req.Matches[0].Symbol
		req.Params.Token = req.Matches[0].Token
	}
	logging.LogResolve(m.logger, req.Original, req.Params.Symbol, len(req.Matches))
}

// ExamplePrompts returns prompts the matcher understands, for the chat help.
func ExamplePrompts() []string {
	return []string{
		"Show me 5 year data of TCS",
		"Get top 10 performing stocks in last 30 days",
		"Show trend analysis of Reliance",
		"Compare performance of HDFC with ICICI",
		"Show 200 day moving average for Infosys",
		"Calculate RSI analysis for Wipro",
		"Show support and resistance levels for TATA MOTORS",
		"What is the market sentiment for Nifty IT",
		"Show volume analysis of SBI",
		"Analyze the price movement of ITC in the last 90 days",
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
