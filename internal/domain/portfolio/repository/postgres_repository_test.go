package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresJournalRepository_RecordAppend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := &JournalEntry{
		ID:        id,
		Tab:       "00878",
		TradeDate: "2024-03-01",
		Category:  "買入",
		Amount:    105,
		Price:     10,
		Fee:       5,
		Units:     10,
		RowValues: []any{"2024-03-01", "", "買入", 105.0, 10.0, "", 5.0, "", "", 10.0},
		CreatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta(insertJournalQuery)).
		WithArgs(id, "00878", "2024-03-01", "買入", 105.0, 10.0, 5.0, 10.0,
			`["2024-03-01","","買入",105,10,"",5,"","",10]`, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresJournalRepository(mock)
	require.NoError(t, repo.RecordAppend(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJournalRepository_RecordAppend_AssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertJournalQuery)).
		WithArgs(pgxmock.AnyArg(), "fund", "2024-01-02", "賣出", 1.0, 1.0, 0.0, 1.0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := &JournalEntry{Tab: "fund", TradeDate: "2024-01-02", Category: "賣出", Amount: 1, Price: 1, Units: 1}
	repo := NewPostgresJournalRepository(mock)
	require.NoError(t, repo.RecordAppend(context.Background(), entry))

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJournalRepository_RecordAppend_ExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(insertJournalQuery)).WillReturnError(dbErr)

	repo := NewPostgresJournalRepository(mock)
	err = repo.RecordAppend(context.Background(), &JournalEntry{Tab: "fund"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to record journal entry")
}

func TestPostgresJournalRepository_ListAppends(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "tab", "trade_date", "category", "amount", "price", "fee", "units", "row_values", "created_at",
	}).AddRow(id, "00878", "2024-03-01", "買入", 105.0, 10.0, 5.0, 10.0,
		[]byte(`["2024-03-01","","買入",105,10,"",5,"","",10]`), now)

	mock.ExpectQuery(regexp.QuoteMeta(listJournalQuery)).
		WithArgs("00878", defaultJournalLimit).
		WillReturnRows(rows)

	repo := NewPostgresJournalRepository(mock)
	entries, err := repo.ListAppends(context.Background(), "00878", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, 10.0, entries[0].Units)
	require.Len(t, entries[0].RowValues, OutputRowWidth)
	assert.Equal(t, "買入", entries[0].RowValues[ColCategory])
	assert.Equal(t, 105.0, entries[0].RowValues[ColAmount])
	require.NoError(t, mock.ExpectationsWereMet())
}
