// Package models provides domain models for the analyst application.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
	MCX Exchange = "MCX" // Commodity
)

// InstrumentType classifies an instrument.
type InstrumentType string

const (
	TypeEquity InstrumentType = "EQ"
	TypeFuture InstrumentType = "FUT"
	TypeOption InstrumentType = "OPT"
	TypeIndex  InstrumentType = "INDEX"
)

// Interval represents a candle interval.
type Interval string

const (
	IntervalDay    Interval = "day"
	IntervalWeek   Interval = "week"
	IntervalMonth  Interval = "month"
	Interval1Min   Interval = "1minute"
	Interval30Min  Interval = "30minute"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	OI        int64
}

// Quote represents a market quote.
type Quote struct {
	Symbol        string
	LTP           float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	Change        float64
	ChangePercent float64
	Timestamp     time.Time
}

// Instrument represents a tradeable instrument from the master contract.
type Instrument struct {
	Exchange  Exchange
	Symbol    string // trading symbol, e.g. INFY
	Name      string // display name, e.g. Infosys Limited
	ShortName string
	Type      InstrumentType
	ISIN      string
	Token     string // exchange token / instrument key
	LotSize   int
	TickSize  float64
	Strike    float64
	Expiry    time.Time
}

// Key returns the API instrument key, e.g. "NSE_EQ|INFY".
func (i Instrument) Key() string {
	return string(i.Exchange) + "_" + string(i.Type) + "|" + i.Symbol
}

// AnalysisResult is the uniform envelope returned by every analysis handler.
// Success=false implies Error is set and Data is nil.
type AnalysisResult struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Failure builds a failed result.
func Failure(msg string) AnalysisResult {
	return AnalysisResult{Success: false, Error: msg}
}

// Ok builds a successful result.
func Ok(data map[string]any) AnalysisResult {
	return AnalysisResult{Success: true, Data: data}
}
