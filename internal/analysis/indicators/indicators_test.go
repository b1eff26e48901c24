package indicators

import (
	"math"
	"sort"
	"testing"
	"time"

	"upstox-analyst/internal/models"
)

func candlesFromCloses(closes ...float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return candles
}

func TestSMAHandComputed(t *testing.T) {
	candles := candlesFromCloses(10, 20, 30, 40, 50)
	sma := NewSMA(3)

	values, err := sma.Calculate(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if !math.IsNaN(values[i]) {
			t.Errorf("values[%d] = %v, want NaN", i, values[i])
		}
	}

	want := []float64{20, 30, 40}
	for i, w := range want {
		got := values[i+2]
		if math.Abs(got-w) > 1e-9 {
			t.Errorf("values[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestSMAShortSeriesAllNaN(t *testing.T) {
	candles := candlesFromCloses(10, 20)
	sma := NewSMA(5)

	values, err := sma.Calculate(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
	for i, v := range values {
		if !math.IsNaN(v) {
			t.Errorf("values[%d] = %v, want NaN", i, v)
		}
	}
}

func TestSMAInvalidPeriod(t *testing.T) {
	for _, period := range []int{0, -3} {
		sma := NewSMA(period)
		if _, err := sma.Calculate(candlesFromCloses(1, 2, 3)); err != ErrInvalidPeriod {
			t.Errorf("period %d: err = %v, want ErrInvalidPeriod", period, err)
		}
	}
}

func TestEMASeedIsSMA(t *testing.T) {
	candles := candlesFromCloses(10, 20, 30, 40, 50)
	ema := NewEMA(3)

	values, err := ema.Calculate(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Seed at index period-1 is the SMA of the first period closes.
	if math.Abs(values[2]-20) > 1e-9 {
		t.Errorf("seed = %v, want 20", values[2])
	}

	// Next value follows EMA recursion with multiplier 2/(n+1) = 0.5.
	want := (40.0-20.0)*0.5 + 20.0
	if math.Abs(values[3]-want) > 1e-9 {
		t.Errorf("values[3] = %v, want %v", values[3], want)
	}
}

func TestRSIMonotonicRiseIsHundred(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	rsi := NewRSI(14)

	values, err := rsi.Calculate(candlesFromCloses(closes...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := values[len(values)-1]
	if math.Abs(last-100) > 1e-9 {
		t.Errorf("RSI of strictly rising series = %v, want 100", last)
	}
}

func TestRSIRollingMeanHandComputed(t *testing.T) {
	// Period-3 rolling means over deltas +1,-1,+2,-1,+2:
	// i=3: avgGain=1, avgLoss=1/3, RS=3  -> 75
	// i=4: avgGain=2/3, avgLoss=2/3, RS=1 -> 50
	// i=5: avgGain=4/3, avgLoss=1/3, RS=4 -> 80
	candles := candlesFromCloses(10, 11, 10, 12, 11, 13)
	rsi := NewRSI(3)

	values, err := rsi.Calculate(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{75, 50, 80}
	for i, w := range want {
		got := values[i+3]
		if math.Abs(got-w) > 1e-9 {
			t.Errorf("values[%d] = %v, want %v", i+3, got, w)
		}
	}
}

func TestRSILeadingNaN(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4, 5)
	rsi := NewRSI(14)

	values, err := rsi.Calculate(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range values {
		if !math.IsNaN(v) {
			t.Errorf("values[%d] = %v, want NaN for short series", i, v)
		}
	}
}

func TestVWAPSingleCandleIsTypicalPrice(t *testing.T) {
	candle := models.Candle{High: 110, Low: 90, Close: 100, Volume: 500}
	vwap := NewVWAP()

	values, err := vwap.Calculate([]models.Candle{candle})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (110.0 + 90.0 + 100.0) / 3
	if math.Abs(values[0]-want) > 1e-9 {
		t.Errorf("VWAP = %v, want %v", values[0], want)
	}
}

func TestMaxDrawdownValue(t *testing.T) {
	// Peak 100, trough 60: drawdown -40%.
	candles := candlesFromCloses(80, 100, 90, 60, 75)

	got := MaxDrawdownValue(candles)
	if math.Abs(got-(-40)) > 1e-9 {
		t.Errorf("MaxDrawdownValue = %v, want -40", got)
	}
}

func TestMACDLineIsEMADifference(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*10
	}
	candles := candlesFromCloses(closes...)

	macd := NewMACD(12, 26, 9)
	values, err := macd.Calculate(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fast := CalculateEMA(closes, 12)
	slow := CalculateEMA(closes, 26)
	line := values["macd"]

	for i := 25; i < len(closes); i++ {
		want := fast[i] - slow[i]
		if math.Abs(line[i]-want) > 1e-9 {
			t.Errorf("macd[%d] = %v, want %v", i, line[i], want)
		}
	}

	// Histogram equals line minus signal wherever both are defined.
	signal := values["signal"]
	hist := values["histogram"]
	for i := range hist {
		if math.IsNaN(hist[i]) {
			continue
		}
		if math.Abs(hist[i]-(line[i]-signal[i])) > 1e-9 {
			t.Errorf("histogram[%d] = %v, want %v", i, hist[i], line[i]-signal[i])
		}
	}
}

func TestSupportResistanceDistinctAndLimited(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/7)*20
	}
	candles := candlesFromCloses(closes...)

	sr := NewSupportResistance(20)
	levels, err := sr.CalculateLevels(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(levels.Resistance) == 0 || len(levels.Support) == 0 {
		t.Fatal("expected some levels in an oscillating series")
	}
	if len(levels.Resistance) > 5 || len(levels.Support) > 5 {
		t.Errorf("levels exceed limit: %d resistance, %d support", len(levels.Resistance), len(levels.Support))
	}

	seen := map[float64]bool{}
	for _, r := range levels.Resistance {
		if seen[r] {
			t.Errorf("duplicate resistance level %v", r)
		}
		seen[r] = true
	}
}

func TestSupportResistanceLevelsAscending(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/7)*20
	}
	candles := candlesFromCloses(closes...)

	sr := NewSupportResistance(20)
	levels, err := sr.CalculateLevels(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sort.Float64sAreSorted(levels.Support) {
		t.Errorf("support not ascending: %v", levels.Support)
	}
	if !sort.Float64sAreSorted(levels.Resistance) {
		t.Errorf("resistance not ascending: %v", levels.Resistance)
	}
}

func TestTopDistinctKeepsHighestAscending(t *testing.T) {
	got := topDistinct([]float64{5, 1, 9, 3, 9, 7, 2, 8, 6}, 5)

	want := []float64{5, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("topDistinct = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topDistinct = %v, want %v", got, want)
		}
	}
}

func TestSupportResistanceShortSeries(t *testing.T) {
	sr := NewSupportResistance(20)
	levels, err := sr.CalculateLevels(candlesFromCloses(1, 2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels.Support) != 0 || len(levels.Resistance) != 0 {
		t.Errorf("short series should yield no levels, got %+v", levels)
	}
}

func TestPeriodChange(t *testing.T) {
	candles := candlesFromCloses(100, 110)
	if got := PeriodChange(candles); math.Abs(got-10) > 1e-9 {
		t.Errorf("PeriodChange = %v, want 10", got)
	}
	if got := PeriodChange(candles[:1]); !math.IsNaN(got) {
		t.Errorf("PeriodChange of single candle = %v, want NaN", got)
	}
}
