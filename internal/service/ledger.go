package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

type ledgerRepo interface {
	Insert(ctx context.Context, entry *domain.LedgerEntry) error
	InsertBatch(ctx context.Context, entries []domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.EntryStatus) error
	ListByAccount(ctx context.Context, code string, limit, offset int) ([]domain.LedgerEntry, int, error)
}

type postingAccountRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
}

type LedgerService struct {
	ledger   ledgerRepo
	accounts postingAccountRepo
}

func NewLedgerService(ledger ledgerRepo, accounts postingAccountRepo) *LedgerService {
	return &LedgerService{ledger: ledger, accounts: accounts}
}

type PostEntryInput struct {
	AccountCode string
	EntryDate   time.Time
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Status      domain.EntryStatus
	Reference   string
}

func (s *LedgerService) buildEntry(ctx context.Context, input PostEntryInput) (*domain.LedgerEntry, error) {
	status := input.Status
	if status == "" {
		status = domain.EntryStatusCompleted
	}
	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		AccountCode: input.AccountCode,
		EntryDate:   input.EntryDate,
		Description: input.Description,
		Debit:       input.Debit,
		Credit:      input.Credit,
		Status:      status,
		Reference:   input.Reference,
		CreatedAt:   time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByCode(ctx, entry.AccountCode)
	if err != nil {
		return nil, err
	}
	if !account.AllowPosting {
		return nil, fmt.Errorf("account %s: %w", account.Code, domain.ErrPostingNotAllowed)
	}
	if !account.Active {
		return nil, fmt.Errorf("account %s is inactive: %w", account.Code, domain.ErrPostingNotAllowed)
	}
	return entry, nil
}

func (s *LedgerService) PostEntry(ctx context.Context, input PostEntryInput) (*domain.LedgerEntry, error) {
	entry, err := s.buildEntry(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("PostEntry: %w", err)
	}
	if err := s.ledger.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("PostEntry: %w", err)
	}
	return entry, nil
}

// PostBatch validates and writes a set of entries atomically. The batch is
// not required to balance; the trial balance validator reports on the books
// as they are.
func (s *LedgerService) PostBatch(ctx context.Context, inputs []PostEntryInput) ([]domain.LedgerEntry, error) {
	log := logging.FromContext(ctx)

	if len(inputs) == 0 {
		return nil, fmt.Errorf("PostBatch: %w: empty batch", domain.ErrMissingField)
	}

	entries := make([]domain.LedgerEntry, 0, len(inputs))
	for i, input := range inputs {
		entry, err := s.buildEntry(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("PostBatch: entry %d: %w", i, err)
		}
		entries = append(entries, *entry)
	}

	if err := s.ledger.InsertBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("PostBatch: %w", err)
	}

	log.Info("ledger batch posted", "entries", len(entries))
	return entries, nil
}

// CompleteEntry moves a pending entry into the completed state, after which
// it becomes immutable apart from voiding.
func (s *LedgerService) CompleteEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("CompleteEntry: %w", err)
	}
	if entry.Status != domain.EntryStatusPending {
		return fmt.Errorf("CompleteEntry: %w: %s entry", domain.ErrEntryTransition, entry.Status)
	}
	if err := s.ledger.SetStatus(ctx, id, domain.EntryStatusCompleted); err != nil {
		return fmt.Errorf("CompleteEntry: %w", err)
	}
	return nil
}

// VoidEntry excludes an entry from all balance derivation while keeping it in
// the ledger. Amounts are never edited; voiding is the only reversal.
func (s *LedgerService) VoidEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("VoidEntry: %w", err)
	}
	if entry.Status == domain.EntryStatusVoided {
		return fmt.Errorf("VoidEntry: %w: already voided", domain.ErrEntryTransition)
	}
	if err := s.ledger.SetStatus(ctx, id, domain.EntryStatusVoided); err != nil {
		return fmt.Errorf("VoidEntry: %w", err)
	}
	return nil
}

func (s *LedgerService) ListEntries(ctx context.Context, code string, limit, offset int) ([]domain.LedgerEntry, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.ledger.ListByAccount(ctx, code, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEntries: %w", err)
	}
	return entries, total, nil
}
