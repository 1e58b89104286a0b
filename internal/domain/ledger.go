package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusVoided    EntryStatus = "voided"
)

func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPending, EntryStatusCompleted, EntryStatusVoided:
		return true
	}
	return false
}

// LedgerEntry is one posted line. Exactly one of Debit or Credit is positive;
// the other is zero. Voided entries stay in the ledger but never contribute
// to balances.
type LedgerEntry struct {
	ID          uuid.UUID
	AccountCode string
	EntryDate   time.Time
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Status      EntryStatus
	Reference   string
	CreatedAt   time.Time
}

// DebitCredit is an account's aggregated debit and credit activity.
type DebitCredit struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Amount returns the magnitude of whichever side is set.
func (e *LedgerEntry) Amount() decimal.Decimal {
	if e.Debit.IsPositive() {
		return e.Debit
	}
	return e.Credit
}

func (e *LedgerEntry) Validate() error {
	if e.AccountCode == "" {
		return fmt.Errorf("account code: %w", ErrMissingField)
	}
	if e.EntryDate.IsZero() {
		return fmt.Errorf("entry date: %w", ErrInvalidDate)
	}
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidEntry)
	}
	if e.Debit.IsPositive() == e.Credit.IsPositive() {
		return ErrInvalidEntry
	}
	if !e.Debit.Equal(e.Debit.Round(2)) || !e.Credit.Equal(e.Credit.Round(2)) {
		return fmt.Errorf("%w: amounts beyond two decimal places", ErrInvalidEntry)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	}
	return nil
}
