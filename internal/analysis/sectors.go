package analysis

import (
	"strings"

	"upstox-analyst/internal/models"
)

// Static sector membership for NSE large caps. A live constituents feed
// is out of scope; the tables cover the sectors the matcher recognises
// in practice.
var sectorTable = map[string][]string{
	"IT":     {"INFY", "TCS", "WIPRO", "HCLTECH", "TECHM"},
	"BANK":   {"HDFCBANK", "ICICIBANK", "SBIN", "KOTAKBANK", "AXISBANK"},
	"PHARMA": {"SUNPHARMA", "DRREDDY", "CIPLA", "DIVISLAB", "LUPIN"},
	"AUTO":   {"MARUTI", "TATAMOTORS", "M&M", "BAJAJ-AUTO", "EICHERMOT"},
	"FMCG":   {"HINDUNILVR", "ITC", "NESTLEIND", "BRITANNIA", "DABUR"},
	"ENERGY": {"RELIANCE", "ONGC", "NTPC", "POWERGRID", "ADANIGREEN"},
	"METAL":  {"TATASTEEL", "JSWSTEEL", "HINDALCO", "VEDL", "COALINDIA"},
}

var sectorAliases = map[string]string{
	"BANKING":         "BANK",
	"FINANCE":         "BANK",
	"TECHNOLOGY":      "IT",
	"TECH":            "IT",
	"PHARMACEUTICAL":  "PHARMA",
	"PHARMACEUTICALS": "PHARMA",
	"AUTOMOBILE":      "AUTO",
	"OIL":             "ENERGY",
	"POWER":           "ENERGY",
}

// sectorConstituents maps a free-text sector name to its instruments.
func sectorConstituents(sector string) ([]models.Instrument, bool) {
	name := strings.ToUpper(strings.TrimSpace(sector))
	if canonical, ok := sectorAliases[name]; ok {
		name = canonical
	}
	symbols, ok := sectorTable[name]
	if !ok {
		return nil, false
	}
	return nseEquities(symbols), true
}

// liquidUniverse is the fixed set ranked by the top-performers handler.
func liquidUniverse() []models.Instrument {
	return nseEquities([]string{
		"RELIANCE", "HDFCBANK", "ICICIBANK", "INFY", "TCS",
		"SBIN", "ITC", "HINDUNILVR", "MARUTI", "TATAMOTORS",
		"SUNPHARMA", "TATASTEEL", "WIPRO", "AXISBANK", "NTPC",
	})
}

func nseEquities(symbols []string) []models.Instrument {
	out := make([]models.Instrument, len(symbols))
	for i, s := range symbols {
		out[i] = models.Instrument{
			Exchange: models.NSE,
			Symbol:   s,
			Type:     models.TypeEquity,
		}
	}
	return out
}

// Sectors lists the known sector names, for help output.
func Sectors() []string {
	out := make([]string, 0, len(sectorTable))
	for k := range sectorTable {
		out = append(out, k)
	}
	return out
}
