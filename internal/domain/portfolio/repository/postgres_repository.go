package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const (
	insertJournalQuery = `
		INSERT INTO transaction_journal (
			id, tab, trade_date, category, amount, price, fee, units, row_values, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	listJournalQuery = `
		SELECT id, tab, trade_date, category, amount, price, fee, units, row_values, created_at
		FROM transaction_journal
		WHERE ($1 = '' OR tab = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
)

const defaultJournalLimit = 50

// PostgresJournalRepository implements JournalRepository using PostgreSQL
type PostgresJournalRepository struct {
	pgpool PgxPool
}

// NewPostgresJournalRepository creates a new PostgreSQL-backed journal repository
func NewPostgresJournalRepository(pgpool PgxPool) *PostgresJournalRepository {
	return &PostgresJournalRepository{pgpool: pgpool}
}

// RecordAppend inserts a journal entry for an appended row
func (r *PostgresJournalRepository) RecordAppend(ctx context.Context, entry *JournalEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	rowValues, err := json.Marshal(entry.RowValues)
	if err != nil {
		return fmt.Errorf("failed to encode row values: %w", err)
	}

	_, err = r.pgpool.Exec(ctx, insertJournalQuery,
		entry.ID, entry.Tab, entry.TradeDate, entry.Category,
		entry.Amount, entry.Price, entry.Fee, entry.Units,
		string(rowValues), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}

	return nil
}

// ListAppends returns the most recent journal entries, optionally filtered by tab
func (r *PostgresJournalRepository) ListAppends(ctx context.Context, tab string, limit int) ([]*JournalEntry, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}

	rows, err := r.pgpool.Query(ctx, listJournalQuery, tab, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var rowValues []byte
		if err := rows.Scan(
			&entry.ID, &entry.Tab, &entry.TradeDate, &entry.Category,
			&entry.Amount, &entry.Price, &entry.Fee, &entry.Units,
			&rowValues, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if len(rowValues) > 0 {
			if err := json.Unmarshal(rowValues, &entry.RowValues); err != nil {
				return nil, fmt.Errorf("failed to decode row values: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	return entries, nil
}
