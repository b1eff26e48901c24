package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "upstox-analyst/internal/errors"
)

func TestFormatIndianCurrency(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0.00"},
		{999.5, "₹999.50"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},
		{10000000, "₹1,00,00,000.00"},
		{1520.5, "₹1,520.50"},
		{-45000, "-₹45,000.00"},
	}

	for _, tt := range tests {
		if got := FormatIndianCurrency(tt.amount); got != tt.want {
			t.Errorf("FormatIndianCurrency(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestProperty_IndianCurrencyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	indianPattern := regexp.MustCompile(`^(\d{1,2},)*\d{1,3}$`)

	properties.Property("Indian grouping and two decimal places", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatIndianCurrency(amount)

			if amount >= 0 && !strings.HasPrefix(formatted, "₹") {
				return false
			}
			if amount < 0 && !strings.HasPrefix(formatted, "-₹") {
				return false
			}

			parts := strings.Split(formatted, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				return false
			}

			numPart := strings.TrimPrefix(strings.TrimPrefix(parts[0], "-"), "₹")
			return indianPattern.MatchString(numPart)
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("round-trips the rounded value", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatIndianCurrency(amount)

			cleaned := strings.NewReplacer("₹", "", ",", "").Replace(formatted)
			parsed, err := strconv.ParseFloat(cleaned, 64)
			if err != nil {
				return false
			}
			return math.Abs(parsed-math.Round(amount*100)/100) <= 0.01
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(3.456); got != "+3.46%" {
		t.Errorf("FormatPercent(3.456) = %q", got)
	}
	if got := FormatPercent(-2.1); got != "-2.10%" {
		t.Errorf("FormatPercent(-2.1) = %q", got)
	}
	if got := FormatPercent(0); got != "0.00%" {
		t.Errorf("FormatPercent(0) = %q", got)
	}
}

func TestFormatCompact(t *testing.T) {
	if got := FormatCompact(250000); got != "2.50 L" {
		t.Errorf("FormatCompact(250000) = %q", got)
	}
	if got := FormatCompact(35000000); got != "3.50 Cr" {
		t.Errorf("FormatCompact(35000000) = %q", got)
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		name string
		when time.Time
		want MarketStatus
	}{
		{"weekday mid-session", time.Date(2025, 6, 2, 11, 0, 0, 0, IndiaLocation), MarketOpen},
		{"pre-open window", time.Date(2025, 6, 2, 9, 5, 0, 0, IndiaLocation), MarketPreOpen},
		{"after close", time.Date(2025, 6, 2, 16, 0, 0, 0, IndiaLocation), MarketClosed},
		{"saturday", time.Date(2025, 6, 7, 11, 0, 0, 0, IndiaLocation), MarketClosed},
		{"last trading minute", time.Date(2025, 6, 2, 15, 29, 0, 0, IndiaLocation), MarketOpen},
		{"exactly at close", time.Date(2025, 6, 2, 15, 30, 0, 0, IndiaLocation), MarketClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketStatusAt(tt.when); got != tt.want {
				t.Errorf("MarketStatusAt(%v) = %v, want %v", tt.when, got, tt.want)
			}
		})
	}
}

func TestNextMarketOpenSkipsWeekend(t *testing.T) {
	// Friday evening rolls to Monday morning.
	friday := time.Date(2025, 6, 6, 18, 0, 0, 0, IndiaLocation)
	next := NextMarketOpen(friday)
	if next.Weekday() != time.Monday || next.Hour() != 9 || next.Minute() != 15 {
		t.Errorf("NextMarketOpen(friday evening) = %v", next)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	wantErr := errors.New("permanent")
	err := Retry(context.Background(), cfg, func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want last error", err)
	}
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: []error{apperrors.ErrRateLimited, apperrors.ErrTimeout},
	}

	attempts := 0
	wantErr := apperrors.ErrNotAuthenticated
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retryable error", attempts)
	}
}

func TestRetryRetriesListedErrors(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: []error{apperrors.ErrRateLimited},
	}

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("fetch quotes: %w", apperrors.ErrRateLimited)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryCancelledContextStopsBackoff(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, cfg, func() error {
			attempts++
			return errors.New("transient")
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithResult(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	attempts := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("RetryWithResult = %d, %v", got, err)
	}
}
