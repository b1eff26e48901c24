package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"upstox-analyst/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One instrument master snapshot per calendar day
	CREATE TABLE IF NOT EXISTS instrument_snapshots (
		snapshot_date TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		instrument_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Journal of parsed user queries and their outcomes
	CREATE TABLE IF NOT EXISTS query_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		prompt TEXT NOT NULL,
		intent TEXT,
		symbol TEXT,
		success INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON query_journal(timestamp);
	CREATE INDEX IF NOT EXISTS idx_journal_intent ON query_journal(intent);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot stores the instrument set for a date, replacing any
// earlier snapshot for the same day.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, date string, instruments []models.Instrument) error {
	payload, err := json.Marshal(instruments)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instrument_snapshots (snapshot_date, payload, instrument_count)
		VALUES (?, ?, ?)
		ON CONFLICT(snapshot_date) DO UPDATE SET
			payload = excluded.payload,
			instrument_count = excluded.instrument_count`,
		date, string(payload), len(instruments))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the instrument set for a date, or nil when the
// date has no snapshot.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, date string) ([]models.Instrument, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM instrument_snapshots WHERE snapshot_date = ?`, date).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var instruments []models.Instrument
	if err := json.Unmarshal([]byte(payload), &instruments); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return instruments, nil
}

// PruneSnapshots deletes snapshots older than keepDays days.
func (s *SQLiteStore) PruneSnapshots(ctx context.Context, keepDays int) error {
	cutoff := time.Now().AddDate(0, 0, -keepDays).Format("2006-01-02")
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM instrument_snapshots WHERE snapshot_date < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	return nil
}

// LogQuery appends one query record to the journal.
func (s *SQLiteStore) LogQuery(ctx context.Context, record QueryRecord) error {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_journal (timestamp, prompt, intent, symbol, success, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ts, record.Prompt, record.Intent, record.Symbol, boolToInt(record.Success), record.Error)
	if err != nil {
		return fmt.Errorf("logging query: %w", err)
	}
	return nil
}

// RecentQueries returns the newest journal entries, newest first.
func (s *SQLiteStore) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, prompt, intent, symbol, success, error
		FROM query_journal
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var r QueryRecord
		var success int
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Prompt, &r.Intent, &r.Symbol, &success, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		r.Success = success != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
