package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/repository"
	"github.com/bookclose/bookclose/internal/testutil"
)

func setupLedgerTest(t *testing.T) (*sql.DB, *LedgerService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.SeedChart(t, db)
	repo := repository.NewLedgerRepository(db)
	return db, NewLedgerService(repo, repository.NewAccountRepository(db))
}

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestPostEntry(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	entry, err := svc.PostEntry(ctx, PostEntryInput{
		AccountCode: "1000",
		EntryDate:   jan(10),
		Description: "opening deposit",
		Debit:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.Equal(t, domain.EntryStatusCompleted, entry.Status)

	fetched, err := svc.ledger.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, "opening deposit", fetched.Description)
	require.True(t, fetched.Debit.Equal(decimal.NewFromInt(100)))
	require.True(t, fetched.Credit.IsZero())

	tests := []struct {
		name    string
		input   PostEntryInput
		wantErr error
	}{
		{
			name:    "both sides set",
			input:   PostEntryInput{AccountCode: "1000", EntryDate: jan(10), Debit: decimal.NewFromInt(5), Credit: decimal.NewFromInt(5)},
			wantErr: domain.ErrInvalidEntry,
		},
		{
			name:    "neither side set",
			input:   PostEntryInput{AccountCode: "1000", EntryDate: jan(10)},
			wantErr: domain.ErrInvalidEntry,
		},
		{
			name:    "negative amount",
			input:   PostEntryInput{AccountCode: "1000", EntryDate: jan(10), Debit: decimal.NewFromInt(-5)},
			wantErr: domain.ErrInvalidEntry,
		},
		{
			name:    "missing entry date",
			input:   PostEntryInput{AccountCode: "1000", Debit: decimal.NewFromInt(5)},
			wantErr: domain.ErrInvalidDate,
		},
		{
			name:    "unknown account",
			input:   PostEntryInput{AccountCode: "9999", EntryDate: jan(10), Debit: decimal.NewFromInt(5)},
			wantErr: domain.ErrAccountNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PostEntry(ctx, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// posting controls
	_, err = db.Exec(`UPDATE accounts SET allow_posting = false WHERE code = '3100'`)
	require.NoError(t, err)
	_, err = svc.PostEntry(ctx, PostEntryInput{AccountCode: "3100", EntryDate: jan(10), Credit: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, domain.ErrPostingNotAllowed)

	_, err = db.Exec(`UPDATE accounts SET active = false WHERE code = '6000'`)
	require.NoError(t, err)
	_, err = svc.PostEntry(ctx, PostEntryInput{AccountCode: "6000", EntryDate: jan(10), Debit: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, domain.ErrPostingNotAllowed)
}

func TestPostBatch(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	entries, err := svc.PostBatch(ctx, []PostEntryInput{
		{AccountCode: "1000", EntryDate: jan(5), Debit: decimal.NewFromInt(1000), Reference: "INV-1"},
		{AccountCode: "3000", EntryDate: jan(5), Credit: decimal.NewFromInt(1000), Reference: "INV-1"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ledger_entries`).Scan(&count))
	require.Equal(t, 2, count)

	// one bad entry rejects the whole batch
	_, err = svc.PostBatch(ctx, []PostEntryInput{
		{AccountCode: "1000", EntryDate: jan(6), Debit: decimal.NewFromInt(50)},
		{AccountCode: "9999", EntryDate: jan(6), Credit: decimal.NewFromInt(50)},
	})
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ledger_entries`).Scan(&count))
	require.Equal(t, 2, count)

	_, err = svc.PostBatch(ctx, nil)
	require.ErrorIs(t, err, domain.ErrMissingField)
}

func TestEntryStatusTransitions(t *testing.T) {
	_, svc := setupLedgerTest(t)
	ctx := context.Background()

	entry, err := svc.PostEntry(ctx, PostEntryInput{
		AccountCode: "1000",
		EntryDate:   jan(10),
		Debit:       decimal.NewFromInt(75),
		Status:      domain.EntryStatusPending,
	})
	require.NoError(t, err)

	require.NoError(t, svc.CompleteEntry(ctx, entry.ID))

	// completing twice is rejected
	err = svc.CompleteEntry(ctx, entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryTransition)

	require.NoError(t, svc.VoidEntry(ctx, entry.ID))
	err = svc.VoidEntry(ctx, entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryTransition)

	// voided entries never come back
	err = svc.CompleteEntry(ctx, entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryTransition)
}

func TestListEntries(t *testing.T) {
	_, svc := setupLedgerTest(t)
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		_, err := svc.PostEntry(ctx, PostEntryInput{
			AccountCode: "1000",
			EntryDate:   jan(d),
			Debit:       decimal.NewFromInt(int64(d)),
		})
		require.NoError(t, err)
	}

	entries, total, err := svc.ListEntries(ctx, "1000", 2, 0)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, entries, 2)
	// newest first
	require.Equal(t, jan(5), entries[0].EntryDate.UTC())

	entries, total, err = svc.ListEntries(ctx, "1000", 2, 4)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, entries, 1)

	entries, _, err = svc.ListEntries(ctx, "2000", 10, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}
