package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"upstox-analyst/internal/intent"
	"upstox-analyst/internal/models"
	"upstox-analyst/internal/store"
)

type fakeParser struct {
	req intent.ParsedRequest
}

func (f fakeParser) Parse(prompt string) intent.ParsedRequest {
	req := f.req
	req.Original = prompt
	return req
}

type fakeRunner struct {
	result models.AnalysisResult
	got    intent.ParsedRequest
	calls  int
}

func (f *fakeRunner) Dispatch(_ context.Context, req intent.ParsedRequest) models.AnalysisResult {
	f.calls++
	f.got = req
	return f.result
}

type fakeJournal struct {
	records []store.QueryRecord
}

func (f *fakeJournal) LogQuery(_ context.Context, record store.QueryRecord) error {
	f.records = append(f.records, record)
	return nil
}

func newTestSession(parser Parser, runner Runner, journal Journal) (*Session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewSession(parser, runner, journal, zerolog.Nop(), out), out
}

func infyRequest() intent.ParsedRequest {
	return intent.ParsedRequest{
		Intent: intent.IntentStockDetails,
		Params: intent.Params{Symbol: "INFY"},
		Matches: []models.Instrument{
			{Exchange: models.NSE, Symbol: "INFY", Name: "Infosys Limited", Type: models.TypeEquity},
		},
	}
}

func TestAskNotUnderstood(t *testing.T) {
	runner := &fakeRunner{}
	journal := &fakeJournal{}
	s, _ := newTestSession(fakeParser{intent.ParsedRequest{}}, runner, journal)

	got := s.Ask(context.Background(), "gibberish prompt")

	if !strings.Contains(got, "could not understand") {
		t.Errorf("reply = %q, want not-understood text", got)
	}
	if !strings.Contains(got, "Try prompts like:") {
		t.Errorf("reply should list example prompts, got %q", got)
	}
	if runner.calls != 0 {
		t.Error("dispatcher invoked for an unparsed prompt")
	}
	if len(journal.records) != 1 || journal.records[0].Success {
		t.Errorf("journal = %+v, want one failure record", journal.records)
	}
}

func TestAskUnknownSymbolHaltsBeforeFetch(t *testing.T) {
	req := intent.ParsedRequest{
		Intent: intent.IntentStockDetails,
		Params: intent.Params{Symbol: "UNKNOWNCO"},
	}
	runner := &fakeRunner{}
	journal := &fakeJournal{}
	s, _ := newTestSession(fakeParser{req}, runner, journal)

	got := s.Ask(context.Background(), "Get the stock details of UNKNOWNCO")

	if !strings.Contains(got, "No matching instruments found") {
		t.Errorf("reply = %q, want not-found text", got)
	}
	if !strings.Contains(got, "UNKNOWNCO") {
		t.Errorf("reply should name the query, got %q", got)
	}
	if runner.calls != 0 {
		t.Error("dispatcher invoked for a symbol with zero candidates")
	}
	if len(journal.records) != 1 || journal.records[0].Success {
		t.Errorf("journal = %+v, want one failure record", journal.records)
	}
}

func TestAskComparisonUnknownSecondLegHalts(t *testing.T) {
	req := intent.ParsedRequest{
		Intent: intent.IntentComparison,
		Params: intent.Params{Symbol: "INFY", Symbol2: "NOSUCHCO"},
		Matches: []models.Instrument{
			{Exchange: models.NSE, Symbol: "INFY", Name: "Infosys Limited", Type: models.TypeEquity},
		},
	}
	runner := &fakeRunner{}
	s, _ := newTestSession(fakeParser{req}, runner, nil)

	got := s.Ask(context.Background(), "Compare INFY with NOSUCHCO")

	if !strings.Contains(got, "No matching instruments found") || !strings.Contains(got, "NOSUCHCO") {
		t.Errorf("reply = %q, want not-found text for the second leg", got)
	}
	if runner.calls != 0 {
		t.Error("dispatcher invoked with an unresolved comparison leg")
	}
}

func TestAskAmbiguousSymbolListsCandidates(t *testing.T) {
	req := intent.ParsedRequest{
		Intent: intent.IntentStockDetails,
		Params: intent.Params{Symbol: "BAJAJ"},
		Matches: []models.Instrument{
			{Exchange: models.NSE, Symbol: "BAJFINANCE", Name: "Bajaj Finance Limited", Type: models.TypeEquity},
			{Exchange: models.NSE, Symbol: "BAJAJ-AUTO", Name: "Bajaj Auto Limited", Type: models.TypeEquity},
		},
	}
	runner := &fakeRunner{}
	s, _ := newTestSession(fakeParser{req}, runner, nil)

	got := s.Ask(context.Background(), "Give me details of BAJAJ")

	if !strings.Contains(got, "matches multiple instruments") {
		t.Errorf("reply = %q, want ambiguity text", got)
	}
	if !strings.Contains(got, "BAJFINANCE") || !strings.Contains(got, "BAJAJ-AUTO") {
		t.Errorf("reply should list both candidates, got %q", got)
	}
	if runner.calls != 0 {
		t.Error("dispatcher invoked on ambiguous symbol")
	}
}

func TestAskDispatchesAndRenders(t *testing.T) {
	runner := &fakeRunner{result: models.Ok(map[string]any{
		"symbol":         "INFY",
		"ltp":            1520.5,
		"open":           1495.0,
		"high":           1532.0,
		"low":            1488.0,
		"previous_close": 1510.0,
		"volume":         int64(450000),
		"change_percent": 0.7,
	})}
	journal := &fakeJournal{}
	s, _ := newTestSession(fakeParser{infyRequest()}, runner, journal)

	got := s.Ask(context.Background(), "Give me details of INFY")

	if runner.calls != 1 {
		t.Fatalf("dispatcher called %d times, want 1", runner.calls)
	}
	if runner.got.Params.Symbol != "INFY" {
		t.Errorf("dispatched symbol = %q", runner.got.Params.Symbol)
	}
	if !strings.Contains(got, "₹1,520.50") {
		t.Errorf("reply missing formatted price: %q", got)
	}
	if !strings.Contains(got, "+0.70%") {
		t.Errorf("reply missing formatted change: %q", got)
	}
	if len(journal.records) != 1 || !journal.records[0].Success {
		t.Errorf("journal = %+v, want one success record", journal.records)
	}
	if journal.records[0].Prompt != "Give me details of INFY" {
		t.Errorf("journal prompt = %q", journal.records[0].Prompt)
	}
}

func TestAskDispatchFailureRendered(t *testing.T) {
	runner := &fakeRunner{result: models.Failure("session expired, please login again")}
	journal := &fakeJournal{}
	s, _ := newTestSession(fakeParser{infyRequest()}, runner, journal)

	got := s.Ask(context.Background(), "Give me details of INFY")

	if !strings.Contains(got, "Error: session expired") {
		t.Errorf("reply = %q, want rendered error", got)
	}
	if len(journal.records) != 1 || journal.records[0].Success {
		t.Errorf("journal = %+v, want failure record", journal.records)
	}
}

func TestAskNilJournal(t *testing.T) {
	runner := &fakeRunner{result: models.Ok(map[string]any{"symbol": "INFY"})}
	s, _ := newTestSession(fakeParser{infyRequest()}, runner, nil)

	if got := s.Ask(context.Background(), "details of INFY"); got == "" {
		t.Error("reply empty with nil journal")
	}
}

func TestRunLoopExitsAndPrintsHelp(t *testing.T) {
	runner := &fakeRunner{result: models.Ok(map[string]any{"symbol": "INFY"})}
	s, out := newTestSession(fakeParser{infyRequest()}, runner, nil)

	in := strings.NewReader("help\ndetails of INFY\nexit\n")
	if err := s.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Upstox Analyst") {
		t.Errorf("banner missing: %q", text)
	}
	if !strings.Contains(text, "Try prompts like:") {
		t.Errorf("help output missing: %q", text)
	}
	if !strings.Contains(text, "Bye.") {
		t.Errorf("exit message missing: %q", text)
	}
	if runner.calls != 1 {
		t.Errorf("dispatcher called %d times, want 1", runner.calls)
	}
}

func TestRenderLevels(t *testing.T) {
	req := intent.ParsedRequest{Intent: intent.IntentSupportResistance}
	result := models.Ok(map[string]any{
		"symbol":     "INFY",
		"period":     "30 day(s)",
		"last_close": 1520.5,
		"levels": map[string]any{
			"support":    []float64{1480.25, 1465.0},
			"resistance": []float64{1540.75},
		},
	})

	got := Render(req, result)
	if !strings.Contains(got, "₹1,480.25, ₹1,465.00") {
		t.Errorf("support levels missing: %q", got)
	}
	if !strings.Contains(got, "₹1,540.75") {
		t.Errorf("resistance level missing: %q", got)
	}
}

func TestRenderTopPerformers(t *testing.T) {
	req := intent.ParsedRequest{Intent: intent.IntentTopPerformers}
	result := models.Ok(map[string]any{
		"period": "7 day(s)",
		"count":  2,
		"performers": []map[string]any{
			{"rank": 1, "symbol": "TCS", "period_change": 5.2},
			{"rank": 2, "symbol": "INFY", "period_change": 3.1},
		},
	})

	got := Render(req, result)
	lines := strings.Split(got, "\n")
	var tcsLine, infyLine int
	for i, line := range lines {
		if strings.Contains(line, "TCS") {
			tcsLine = i
		}
		if strings.Contains(line, "INFY") {
			infyLine = i
		}
	}
	if tcsLine == 0 || infyLine == 0 || tcsLine > infyLine {
		t.Errorf("ranking order wrong:\n%s", got)
	}
}

func TestRenderGenericFallback(t *testing.T) {
	req := intent.ParsedRequest{Intent: intent.Intent("dividend_history")}
	result := models.Ok(map[string]any{"note": "not available"})

	if got := Render(req, result); !strings.Contains(got, "note: not available") {
		t.Errorf("generic render = %q", got)
	}
}
