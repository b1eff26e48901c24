// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotUnderstood      = errors.New("could not understand the request")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrAmbiguousSymbol    = errors.New("symbol matches multiple instruments")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrAuthTimeout        = errors.New("authentication timed out")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPeriod      = errors.New("invalid indicator period")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrNoData             = errors.New("no data returned")
	ErrRateLimited        = errors.New("rate limited")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDirectoryEmpty     = errors.New("instrument directory is empty")
	ErrDatabaseError      = errors.New("database error")
)

// FetchError represents a failure while retrieving data from the market API.
type FetchError struct {
	Endpoint string
	Symbol   string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch error [%s] %s: HTTP %d: %v", e.Endpoint, e.Symbol, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch error [%s] %s: %v", e.Endpoint, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(endpoint, symbol string, status int, err error) *FetchError {
	return &FetchError{
		Endpoint: endpoint,
		Symbol:   symbol,
		Status:   status,
		Err:      err,
	}
}

// ResolveError represents a failure to resolve free text to an instrument.
type ResolveError struct {
	Query      string
	Candidates []string
	Err        error
}

func (e *ResolveError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("resolve error %q: %d candidates: %v", e.Query, len(e.Candidates), e.Err)
	}
	return fmt.Sprintf("resolve error %q: %v", e.Query, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NewResolveError creates a new ResolveError.
func NewResolveError(query string, candidates []string, err error) *ResolveError {
	return &ResolveError{
		Query:      query,
		Candidates: candidates,
		Err:        err,
	}
}

// ComputationError represents an indicator computation failure.
type ComputationError struct {
	Indicator string
	Symbol    string
	Message   string
	Err       error
}

func (e *ComputationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("computation error [%s] %s: %s: %v", e.Indicator, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("computation error [%s] %s: %s", e.Indicator, e.Symbol, e.Message)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// NewComputationError creates a new ComputationError.
func NewComputationError(indicator, symbol, message string, err error) *ComputationError {
	return &ComputationError{
		Indicator: indicator,
		Symbol:    symbol,
		Message:   message,
		Err:       err,
	}
}

// InsightError represents an error from the LLM insight layer.
type InsightError struct {
	Model     string
	Operation string
	Err       error
}

func (e *InsightError) Error() string {
	return fmt.Sprintf("insight error [%s] %s: %v", e.Model, e.Operation, e.Err)
}

func (e *InsightError) Unwrap() error {
	return e.Err
}

// NewInsightError creates a new InsightError.
func NewInsightError(model, operation string, err error) *InsightError {
	return &InsightError{
		Model:     model,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
