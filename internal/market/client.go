// Package market fetches live quotes and historical candles from the
// Upstox v2 REST API, with a bounded TTL cache in front of candle fetches.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	apperrors "upstox-analyst/internal/errors"
	"upstox-analyst/internal/logging"
	"upstox-analyst/internal/models"
)

// TokenSource supplies the current access token for API calls.
type TokenSource interface {
	AccessToken() (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token, used in tests and
// for pre-issued tokens.
type StaticToken string

func (s StaticToken) AccessToken() (string, error) {
	if s == "" {
		return "", apperrors.ErrNotAuthenticated
	}
	return string(s), nil
}

// Client talks to the market data endpoints. Candle responses are cached
// by (instrument, from, to, interval); quotes always hit the API.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	cache   *Cache
	logger  zerolog.Logger
}

// NewClient creates a market data client. cache may be nil to disable
// candle caching.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, cache *Cache, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		client:  httpClient,
		tokens:  tokens,
		cache:   cache,
		logger:  logger,
	}
}

type quoteWire struct {
	LTP              float64 `json:"ltp"`
	Open             float64 `json:"open"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	Close            float64 `json:"close"`
	Volume           int64   `json:"volume"`
	Change           float64 `json:"change"`
	ChangePercentage float64 `json:"change_percentage"`
	Timestamp        string  `json:"timestamp"`
}

type quoteResponse struct {
	Status string    `json:"status"`
	Data   quoteWire `json:"data"`
}

type candleResponse struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]json.RawMessage `json:"candles"`
	} `json:"data"`
}

// GetQuote fetches the live quote for an instrument.
func (c *Client) GetQuote(ctx context.Context, inst models.Instrument) (*models.Quote, error) {
	start := time.Now()

	endpoint := c.baseURL + "/market-quote/quotes?instrument_key=" + url.QueryEscape(instrumentKey(inst))
	var wire quoteResponse
	err := c.getJSON(ctx, "quote", inst.Symbol, endpoint, &wire)
	logging.LogFetch(c.logger, "quote", inst.Symbol, false, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if wire.Status != "success" {
		return nil, apperrors.NewFetchError("quote", inst.Symbol, 0,
			fmt.Errorf("unexpected response status %q", wire.Status))
	}

	return &models.Quote{
		Symbol:        inst.Symbol,
		LTP:           wire.Data.LTP,
		Open:          wire.Data.Open,
		High:          wire.Data.High,
		Low:           wire.Data.Low,
		Close:         wire.Data.Close,
		Volume:        wire.Data.Volume,
		Change:        wire.Data.Change,
		ChangePercent: wire.Data.ChangePercentage,
		Timestamp:     parseTimestamp(wire.Data.Timestamp),
	}, nil
}

// GetCandles fetches historical candles for [from, to], oldest first.
// A fresh cache entry short-circuits the network call.
func (c *Client) GetCandles(ctx context.Context, inst models.Instrument, from, to time.Time, interval models.Interval) ([]models.Candle, error) {
	key := CandleKey(instrumentKey(inst), from, to, interval)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			logging.LogFetch(c.logger, "historical", inst.Symbol, true, 0, nil)
			return v.([]models.Candle), nil
		}
	}

	start := time.Now()
	endpoint := fmt.Sprintf("%s/historical-candle/%s/%s/%s/%s",
		c.baseURL,
		url.PathEscape(instrumentKey(inst)),
		interval,
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))

	var wire candleResponse
	err := c.getJSON(ctx, "historical", inst.Symbol, endpoint, &wire)
	logging.LogFetch(c.logger, "historical", inst.Symbol, false, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if wire.Status != "success" {
		return nil, apperrors.NewFetchError("historical", inst.Symbol, 0,
			fmt.Errorf("unexpected response status %q", wire.Status))
	}

	candles, err := decodeCandles(wire.Data.Candles)
	if err != nil {
		return nil, apperrors.NewFetchError("historical", inst.Symbol, 0, err)
	}
	if len(candles) == 0 {
		return nil, apperrors.NewFetchError("historical", inst.Symbol, 0, apperrors.ErrNoData)
	}

	// The API returns newest first; consumers want chronological order.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	if c.cache != nil {
		c.cache.Put(key, candles)
	}
	return candles, nil
}

// GetMultiCandles fetches candles for several instruments concurrently.
// All fetches must succeed; the first error aborts the whole result.
func (c *Client) GetMultiCandles(ctx context.Context, instruments []models.Instrument, from, to time.Time, interval models.Interval) (map[string][]models.Candle, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[string][]models.Candle, len(instruments))

	for _, inst := range instruments {
		wg.Add(1)
		go func(inst models.Instrument) {
			defer wg.Done()
			candles, err := c.GetCandles(ctx, inst, from, to, interval)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[inst.Symbol] = candles
		}(inst)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, symbol, rawURL string, v interface{}) error {
	token, err := c.tokens.AccessToken()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return apperrors.NewFetchError(endpoint, symbol, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewFetchError(endpoint, symbol, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.NewFetchError(endpoint, symbol, resp.StatusCode, apperrors.ErrSessionExpired)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewFetchError(endpoint, symbol, resp.StatusCode, apperrors.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewFetchError(endpoint, symbol, resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return apperrors.NewFetchError(endpoint, symbol, 0, apperrors.Wrap(err, "decoding response"))
	}
	return nil
}

// instrumentKey prefers the master contract's instrument key when the
// token carries one, falling back to the derived segment|symbol form.
func instrumentKey(inst models.Instrument) string {
	if inst.Token != "" && len(inst.Token) > 3 && inst.Token[3] == '_' {
		return inst.Token
	}
	return inst.Key()
}

// decodeCandles converts wire candle rows [ts, o, h, l, c, v, oi] into
// typed candles. Rows shorter than six fields are rejected.
func decodeCandles(rows [][]json.RawMessage) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("candle %d: %d fields, want at least 6", i, len(row))
		}

		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("candle %d: timestamp: %w", i, err)
		}

		var vals [4]float64
		for j := 1; j <= 4; j++ {
			if err := json.Unmarshal(row[j], &vals[j-1]); err != nil {
				return nil, fmt.Errorf("candle %d: field %d: %w", i, j, err)
			}
		}

		var volume float64
		if err := json.Unmarshal(row[5], &volume); err != nil {
			return nil, fmt.Errorf("candle %d: volume: %w", i, err)
		}
		var oi float64
		if len(row) > 6 {
			if err := json.Unmarshal(row[6], &oi); err != nil {
				return nil, fmt.Errorf("candle %d: open interest: %w", i, err)
			}
		}

		candles = append(candles, models.Candle{
			Timestamp: parseTimestamp(ts),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    int64(volume),
			OI:        int64(oi),
		})
	}
	return candles, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
