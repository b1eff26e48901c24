// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"upstox-analyst/internal/models"
)

// QueryRecord is one journaled user query with its outcome.
type QueryRecord struct {
	ID        int64
	Timestamp time.Time
	Prompt    string
	Intent    string
	Symbol    string
	Success   bool
	Error     string
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Instrument snapshots, one per calendar day
	SaveSnapshot(ctx context.Context, date string, instruments []models.Instrument) error
	LoadSnapshot(ctx context.Context, date string) ([]models.Instrument, error)
	PruneSnapshots(ctx context.Context, keepDays int) error

	// Query journal
	LogQuery(ctx context.Context, record QueryRecord) error
	RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error)

	Close() error
}
