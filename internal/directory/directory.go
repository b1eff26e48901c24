// Package directory loads the instrument master contract and answers
// exact and fuzzy instrument lookups against an in-memory set.
package directory

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	apperrors "upstox-analyst/internal/errors"
	"upstox-analyst/internal/models"
)

// SnapshotStore persists one instrument set per calendar day, so the
// master contract is downloaded at most once a day.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, date string, instruments []models.Instrument) error
	LoadSnapshot(ctx context.Context, date string) ([]models.Instrument, error)
}

// Directory holds the live instrument set. The set is replaced wholesale
// on refresh via an atomic pointer swap; readers never observe a partial
// set and a failed refresh leaves the previous set in place.
type Directory struct {
	url    string
	client *http.Client
	store  SnapshotStore
	logger zerolog.Logger
	now    func() time.Time

	set atomic.Pointer[[]models.Instrument]
}

// New creates a Directory. store may be nil, in which case every Load
// downloads the master contract.
func New(url string, client *http.Client, store SnapshotStore, logger zerolog.Logger) *Directory {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	d := &Directory{
		url:    url,
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	empty := []models.Instrument{}
	d.set.Store(&empty)
	return d
}

// wireInstrument mirrors the master contract payload.
type wireInstrument struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	ISIN     string  `json:"isin"`
	LotSize  int     `json:"lot_size"`
	TickSize float64 `json:"tick_size"`
	Strike   float64 `json:"strike"`
	Expiry   string  `json:"expiry"`
	Token    string  `json:"token"`
}

// Load populates the directory, preferring today's persisted snapshot
// over a fresh download. Lookup methods stay usable on failure; they
// just see an empty set.
func (d *Directory) Load(ctx context.Context) error {
	today := d.now().Format("2006-01-02")

	if d.store != nil {
		instruments, err := d.store.LoadSnapshot(ctx, today)
		if err == nil && len(instruments) > 0 {
			d.set.Store(&instruments)
			d.logger.Info().Int("count", len(instruments)).Msg("Loaded instruments from snapshot")
			return nil
		}
	}

	return d.Refresh(ctx)
}

// Refresh downloads and decompresses the master contract and swaps it in.
// On any error the previous set is retained.
func (d *Directory) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return apperrors.NewFetchError("instrument_master", "", 0, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return apperrors.NewFetchError("instrument_master", "", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewFetchError("instrument_master", "", resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return apperrors.NewFetchError("instrument_master", "", 0, apperrors.Wrap(err, "decompressing master"))
	}
	defer gz.Close()

	var raw []wireInstrument
	if err := json.NewDecoder(gz).Decode(&raw); err != nil {
		return apperrors.NewFetchError("instrument_master", "", 0, apperrors.Wrap(err, "decoding master"))
	}

	instruments := make([]models.Instrument, 0, len(raw))
	for _, w := range raw {
		if w.Symbol == "" {
			continue
		}
		instruments = append(instruments, models.Instrument{
			Exchange:  models.Exchange(strings.ToUpper(w.Exchange)),
			Symbol:    strings.ToUpper(strings.TrimSpace(w.Symbol)),
			Name:      w.Name,
			ShortName: strings.ToUpper(strings.TrimSpace(w.Symbol)),
			Type:      models.InstrumentType(strings.ToUpper(w.Type)),
			ISIN:      w.ISIN,
			Token:     w.Token,
			LotSize:   w.LotSize,
			TickSize:  w.TickSize,
			Strike:    w.Strike,
			Expiry:    parseExpiry(w.Expiry),
		})
	}

	d.set.Store(&instruments)
	d.logger.Info().Int("count", len(instruments)).Msg("Refreshed instrument master")

	if d.store != nil {
		today := d.now().Format("2006-01-02")
		if err := d.store.SaveSnapshot(ctx, today, instruments); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to persist instrument snapshot")
		}
	}

	return nil
}

func parseExpiry(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Instruments returns the current instrument set. The slice must not be
// mutated.
func (d *Directory) Instruments() []models.Instrument {
	return *d.set.Load()
}

// Count returns the number of loaded instruments.
func (d *Directory) Count() int {
	return len(d.Instruments())
}

// ExactMatch finds an instrument by segment (e.g. "NSE_EQ") and trading
// symbol, case-insensitively.
func (d *Directory) ExactMatch(segment, tradingSymbol string) (models.Instrument, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(tradingSymbol))
	segment = strings.ToUpper(strings.TrimSpace(segment))

	for _, inst := range d.Instruments() {
		if inst.Symbol != symbol {
			continue
		}
		if segment == "" || strings.HasPrefix(segment, string(inst.Exchange)) {
			return inst, true
		}
	}
	return models.Instrument{}, false
}

// ByToken finds an instrument by its exchange token.
func (d *Directory) ByToken(token string) (models.Instrument, bool) {
	for _, inst := range d.Instruments() {
		if inst.Token == token {
			return inst, true
		}
	}
	return models.Instrument{}, false
}

// ByISIN finds an instrument by ISIN.
func (d *Directory) ByISIN(isin string) (models.Instrument, bool) {
	for _, inst := range d.Instruments() {
		if inst.ISIN == isin {
			return inst, true
		}
	}
	return models.Instrument{}, false
}

// ByType returns all instruments of the given type.
func (d *Directory) ByType(t models.InstrumentType) []models.Instrument {
	var out []models.Instrument
	for _, inst := range d.Instruments() {
		if inst.Type == t {
			out = append(out, inst)
		}
	}
	return out
}

// ByExchange returns all instruments on the given exchange.
func (d *Directory) ByExchange(e models.Exchange) []models.Instrument {
	var out []models.Instrument
	for _, inst := range d.Instruments() {
		if inst.Exchange == e {
			out = append(out, inst)
		}
	}
	return out
}
