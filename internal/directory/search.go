package directory

import (
	"fmt"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"upstox-analyst/internal/models"
)

// relevanceThreshold is the minimum score a candidate needs to appear in
// fuzzy results. An exact trading-symbol hit alone scores 100.
const relevanceThreshold = 50

// Match is one scored fuzzy-search candidate.
type Match struct {
	Instrument models.Instrument
	Score      float64
}

// Display formats the candidate for ambiguity listings.
func (m Match) Display() string {
	return fmt.Sprintf("Symbol: %s | Name: %s | Type: %s | Exchange: %s",
		m.Instrument.Symbol, m.Instrument.Name, m.Instrument.Type, m.Instrument.Exchange)
}

var typeKeywords = map[string]models.InstrumentType{
	"EQ":      models.TypeEquity,
	"EQUITY":  models.TypeEquity,
	"FUT":     models.TypeFuture,
	"FUTURES": models.TypeFuture,
	"OPT":     models.TypeOption,
	"OPTIONS": models.TypeOption,
	"IDX":     models.TypeIndex,
	"INDEX":   models.TypeIndex,
}

// FuzzySearch scores every instrument against the query and returns the
// candidates above the relevance threshold, best first. Ties keep the
// directory's load order.
func (d *Directory) FuzzySearch(query string, limit int) []Match {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	parts := strings.Fields(query)
	isinShaped := strings.HasPrefix(query, "IN") && len(query) == 12

	var matches []Match
	for _, inst := range d.Instruments() {
		var score float64

		// Trading symbol: exact query beats a query token.
		if inst.Symbol == query {
			score += 100
		} else if containsToken(parts, inst.Symbol) {
			score += 80
		}

		// Display name similarity.
		score += float64(fuzzy.PartialRatio(query, strings.ToUpper(inst.Name))) * 0.5

		// Short name.
		if inst.ShortName == query {
			score += 90
		} else if containsToken(parts, inst.ShortName) {
			score += 70
		}

		// ISIN-shaped queries match the ISIN exactly.
		if isinShaped && inst.ISIN == query {
			score += 100
		}

		// Instrument-type keyword in the query.
		for _, part := range parts {
			if t, ok := typeKeywords[part]; ok && inst.Type == t {
				score += 50
				break
			}
		}

		// Exchange keyword in the query.
		if containsToken(parts, string(inst.Exchange)) {
			score += 50
		}

		if score > relevanceThreshold {
			matches = append(matches, Match{Instrument: inst, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Search returns the fuzzy-search candidates without scores, for callers
// that only need the instruments.
func (d *Directory) Search(query string, limit int) []models.Instrument {
	matches := d.FuzzySearch(query, limit)
	out := make([]models.Instrument, len(matches))
	for i, m := range matches {
		out[i] = m.Instrument
	}
	return out
}

func containsToken(parts []string, token string) bool {
	for _, p := range parts {
		if p == token {
			return true
		}
	}
	return false
}
