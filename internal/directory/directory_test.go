package directory

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"upstox-analyst/internal/models"
)

func masterServer(t *testing.T, instruments []wireInstrument) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if err := json.NewEncoder(gz).Encode(instruments); err != nil {
			t.Fatalf("encoding master: %v", err)
		}
		gz.Close()
		w.Write(buf.Bytes())
	}))
}

func testInstruments() []wireInstrument {
	return []wireInstrument{
		{Exchange: "NSE", Symbol: "INFY", Name: "Infosys Limited", Type: "EQ", ISIN: "INE009A01021", Token: "2885"},
		{Exchange: "NSE", Symbol: "TCS", Name: "Tata Consultancy Services Limited", Type: "EQ", ISIN: "INE467B01029", Token: "11536"},
		{Exchange: "NSE", Symbol: "WIPRO", Name: "Wipro Limited", Type: "EQ", ISIN: "INE075A01022", Token: "3787"},
		{Exchange: "BSE", Symbol: "INFY", Name: "Infosys Limited", Type: "EQ", ISIN: "INE009A01021", Token: "500209"},
		{Exchange: "NSE", Symbol: "NIFTY", Name: "Nifty 50", Type: "INDEX", Token: "26000"},
	}
}

func loadedDirectory(t *testing.T) *Directory {
	t.Helper()
	srv := masterServer(t, testInstruments())
	t.Cleanup(srv.Close)

	d := New(srv.URL, srv.Client(), nil, zerolog.Nop())
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return d
}

func TestLoadFromMaster(t *testing.T) {
	d := loadedDirectory(t)

	if d.Count() != 5 {
		t.Fatalf("Count = %d, want 5", d.Count())
	}

	inst, ok := d.ExactMatch("NSE_EQ", "infy")
	if !ok {
		t.Fatal("ExactMatch(NSE_EQ, infy) not found")
	}
	if inst.Token != "2885" || inst.Exchange != models.NSE {
		t.Errorf("unexpected instrument: %+v", inst)
	}
}

func TestRefreshFailureKeepsPreviousSet(t *testing.T) {
	d := loadedDirectory(t)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()

	d.url = failing.URL
	if err := d.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if d.Count() != 5 {
		t.Errorf("Count after failed refresh = %d, want 5", d.Count())
	}
}

func TestEmptyDirectoryLookups(t *testing.T) {
	d := New("http://invalid.localhost", nil, nil, zerolog.Nop())

	if got := d.FuzzySearch("INFY", 5); len(got) != 0 {
		t.Errorf("FuzzySearch on empty directory = %v, want empty", got)
	}
	if _, ok := d.ExactMatch("NSE_EQ", "INFY"); ok {
		t.Error("ExactMatch on empty directory should miss")
	}
}

func TestFuzzySearchExactSymbolScoresAtLeastHundred(t *testing.T) {
	d := loadedDirectory(t)

	matches := d.FuzzySearch("INFY", 10)
	if len(matches) == 0 {
		t.Fatal("no matches for INFY")
	}
	if matches[0].Score < 100 {
		t.Errorf("top score = %v, want >= 100 for exact symbol", matches[0].Score)
	}
	if matches[0].Instrument.Symbol != "INFY" {
		t.Errorf("top match = %s, want INFY", matches[0].Instrument.Symbol)
	}
}

func TestFuzzySearchThreshold(t *testing.T) {
	d := loadedDirectory(t)

	// A name-only query maxes out at partial-ratio 100 * 0.5 = 50, which
	// sits exactly on the strict threshold and is excluded; symbol-like
	// queries are the ones that resolve.
	if got := d.FuzzySearch("Infosys", 10); len(got) != 0 {
		t.Errorf("name-only query returned %d matches, want 0 under strict threshold", len(got))
	}

	for _, m := range d.FuzzySearch("WIPRO", 10) {
		if m.Score <= relevanceThreshold {
			t.Errorf("match %s has score %v <= threshold", m.Instrument.Symbol, m.Score)
		}
	}

	if got := d.FuzzySearch("zzqqxx", 10); len(got) != 0 {
		t.Errorf("gibberish query returned %d matches, want 0", len(got))
	}
}

func TestFuzzySearchOrderingAndLimit(t *testing.T) {
	d := loadedDirectory(t)

	matches := d.FuzzySearch("INFY", 1)
	if len(matches) != 1 {
		t.Fatalf("limit 1 returned %d matches", len(matches))
	}

	all := d.FuzzySearch("INFY", 0)
	for i := 1; i < len(all); i++ {
		if all[i].Score > all[i-1].Score {
			t.Errorf("matches not sorted descending at %d: %v > %v", i, all[i].Score, all[i-1].Score)
		}
	}
}

func TestFuzzySearchExchangeKeyword(t *testing.T) {
	d := loadedDirectory(t)

	matches := d.FuzzySearch("NSE INFY", 10)
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	if matches[0].Instrument.Exchange != models.NSE {
		t.Errorf("top match exchange = %s, want NSE boost to win", matches[0].Instrument.Exchange)
	}
}

func TestFuzzySearchISIN(t *testing.T) {
	d := loadedDirectory(t)

	matches := d.FuzzySearch("INE075A01022", 10)
	if len(matches) == 0 {
		t.Fatal("no matches for ISIN query")
	}
	if matches[0].Instrument.Symbol != "WIPRO" {
		t.Errorf("top match = %s, want WIPRO", matches[0].Instrument.Symbol)
	}
}

func TestByAccessors(t *testing.T) {
	d := loadedDirectory(t)

	if inst, ok := d.ByToken("11536"); !ok || inst.Symbol != "TCS" {
		t.Errorf("ByToken(11536) = %+v, %v", inst, ok)
	}
	if inst, ok := d.ByISIN("INE075A01022"); !ok || inst.Symbol != "WIPRO" {
		t.Errorf("ByISIN = %+v, %v", inst, ok)
	}
	if got := d.ByType(models.TypeIndex); len(got) != 1 {
		t.Errorf("ByType(INDEX) = %d instruments, want 1", len(got))
	}
	if got := d.ByExchange(models.BSE); len(got) != 1 {
		t.Errorf("ByExchange(BSE) = %d instruments, want 1", len(got))
	}
}

type memorySnapshots struct {
	saved map[string][]models.Instrument
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, date string, instruments []models.Instrument) error {
	if m.saved == nil {
		m.saved = map[string][]models.Instrument{}
	}
	m.saved[date] = instruments
	return nil
}

func (m *memorySnapshots) LoadSnapshot(_ context.Context, date string) ([]models.Instrument, error) {
	return m.saved[date], nil
}

func TestLoadPrefersSameDaySnapshot(t *testing.T) {
	srv := masterServer(t, testInstruments())
	defer srv.Close()

	store := &memorySnapshots{}
	d := New(srv.URL, srv.Client(), store, zerolog.Nop())

	// First load downloads and persists.
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("snapshot not persisted")
	}

	// Second load must come from the snapshot even if the server dies.
	srv.Close()
	d2 := New(srv.URL, srv.Client(), store, zerolog.Nop())
	if err := d2.Load(context.Background()); err != nil {
		t.Fatalf("Load from snapshot: %v", err)
	}
	if d2.Count() != 5 {
		t.Errorf("Count = %d, want 5 from snapshot", d2.Count())
	}
}
