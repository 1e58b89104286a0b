package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func completedEntry(mutate func(*LedgerEntry)) *LedgerEntry {
	e := &LedgerEntry{
		AccountCode: "1000",
		EntryDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "invoice 42",
		Debit:       decimal.NewFromInt(500),
		Status:      EntryStatusCompleted,
	}
	if mutate != nil {
		mutate(e)
	}
	return e
}

func TestLedgerEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LedgerEntry)
		wantErr error
	}{
		{
			name: "valid debit entry",
		},
		{
			name: "valid credit entry",
			mutate: func(e *LedgerEntry) {
				e.Debit = decimal.Zero
				e.Credit = decimal.NewFromInt(500)
			},
		},
		{
			name: "both sides set",
			mutate: func(e *LedgerEntry) {
				e.Credit = decimal.NewFromInt(500)
			},
			wantErr: ErrInvalidEntry,
		},
		{
			name: "neither side set",
			mutate: func(e *LedgerEntry) {
				e.Debit = decimal.Zero
			},
			wantErr: ErrInvalidEntry,
		},
		{
			name: "negative amount",
			mutate: func(e *LedgerEntry) {
				e.Debit = decimal.NewFromInt(-500)
			},
			wantErr: ErrInvalidEntry,
		},
		{
			name: "sub-cent precision",
			mutate: func(e *LedgerEntry) {
				e.Debit = decimal.RequireFromString("500.005")
			},
			wantErr: ErrInvalidEntry,
		},
		{
			name: "missing account code",
			mutate: func(e *LedgerEntry) {
				e.AccountCode = ""
			},
			wantErr: ErrMissingField,
		},
		{
			name: "zero entry date",
			mutate: func(e *LedgerEntry) {
				e.EntryDate = time.Time{}
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "unknown status",
			mutate: func(e *LedgerEntry) {
				e.Status = EntryStatus("posted")
			},
			wantErr: ErrInvalidEntry,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := completedEntry(tc.mutate).Validate()

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLedgerEntryAmount(t *testing.T) {
	debit := completedEntry(nil)
	require.True(t, debit.Amount().Equal(decimal.NewFromInt(500)))

	credit := completedEntry(func(e *LedgerEntry) {
		e.Debit = decimal.Zero
		e.Credit = decimal.NewFromFloat(123.45)
	})
	require.True(t, credit.Amount().Equal(decimal.NewFromFloat(123.45)))
}
