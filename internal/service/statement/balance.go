package statement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

// Balance computes one account's balance as of a date: opening balance plus
// the signed fold of completed entries. Missing or inactive accounts yield
// zero with a warning instead of an error, so a statement built over a
// changing chart degrades instead of failing.
func (s *Service) Balance(ctx context.Context, code string, asOf time.Time) (decimal.Decimal, error) {
	log := logging.FromContext(ctx)

	account, err := s.accounts.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			log.Warn("balance requested for unknown account", "account_code", code)
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("Balance: %w", err)
	}
	if !account.Active {
		log.Warn("balance requested for inactive account", "account_code", code)
		return decimal.Zero, nil
	}

	sums, err := s.ledger.SumByAccount(ctx, time.Time{}, asOf, false, []string{code})
	if err != nil {
		return decimal.Zero, fmt.Errorf("Balance: %w", err)
	}
	dc := sums[code]
	return account.OpeningBalance.Add(account.NormalBalance.Signed(dc.Debit, dc.Credit)), nil
}

// balanceSet is one batched balance pass over a set of accounts. amounts is
// keyed by account code; each value is already signed by the account's
// normal balance.
type balanceSet struct {
	accounts []domain.Account
	amounts  map[string]decimal.Decimal
}

// asOfBalances folds the whole ledger up to asOf for every active account in
// a single grouped query, preserving the per-code Balance contract.
func (s *Service) asOfBalances(ctx context.Context, asOf time.Time, includePending bool) (*balanceSet, error) {
	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("asOfBalances: %w", err)
	}

	sums, err := s.ledger.SumByAccount(ctx, time.Time{}, asOf, includePending, nil)
	if err != nil {
		return nil, fmt.Errorf("asOfBalances: %w", err)
	}

	amounts := make(map[string]decimal.Decimal, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		dc := sums[a.Code]
		amounts[a.Code] = a.OpeningBalance.Add(a.NormalBalance.Signed(dc.Debit, dc.Credit))
	}
	return &balanceSet{accounts: accounts, amounts: amounts}, nil
}

// activitySet folds only the window's entries, without opening balances.
// Flow accounts (revenue, expense) report by period this way.
func (s *Service) activitySet(ctx context.Context, accounts []domain.Account, from, to time.Time, includePending bool) (*balanceSet, error) {
	sums, err := s.ledger.SumByAccount(ctx, from, to, includePending, nil)
	if err != nil {
		return nil, fmt.Errorf("activitySet: %w", err)
	}

	amounts := make(map[string]decimal.Decimal, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		dc := sums[a.Code]
		amounts[a.Code] = a.NormalBalance.Signed(dc.Debit, dc.Credit)
	}
	return &balanceSet{accounts: accounts, amounts: amounts}, nil
}

// categoryBalanceAsOf is a restricted as-of fold over one category, used for
// beginning-of-period values like opening inventory and beginning retained
// earnings.
func (s *Service) categoryBalanceAsOf(ctx context.Context, accounts []domain.Account, cat domain.Category, asOf time.Time, includePending bool) (decimal.Decimal, error) {
	var matched []domain.Account
	var codes []string
	for i := range accounts {
		if accounts[i].Category == cat {
			matched = append(matched, accounts[i])
			codes = append(codes, accounts[i].Code)
		}
	}
	if len(matched) == 0 {
		return decimal.Zero, nil
	}

	sums, err := s.ledger.SumByAccount(ctx, time.Time{}, asOf, includePending, codes)
	if err != nil {
		return decimal.Zero, fmt.Errorf("categoryBalanceAsOf: %w", err)
	}

	total := decimal.Zero
	for i := range matched {
		a := &matched[i]
		dc := sums[a.Code]
		total = total.Add(a.OpeningBalance).Add(a.NormalBalance.Signed(dc.Debit, dc.Credit))
	}
	return total, nil
}

// beginningRetainedEarnings derives retained earnings at a period open: the
// retained earnings account balance plus every earning never closed into it,
// minus dividends, all as of the cutoff. Books without closing entries still
// carry prior periods' results forward this way.
func (s *Service) beginningRetainedEarnings(ctx context.Context, accounts []domain.Account, before time.Time, includePending bool) (decimal.Decimal, error) {
	var subset []domain.Account
	var codes []string
	for i := range accounts {
		a := accounts[i]
		if a.Type == domain.AccountTypeRevenue || a.Type == domain.AccountTypeExpense ||
			a.Category == domain.CategoryDividends || a.Category == domain.CategoryRetainedEarnings {
			subset = append(subset, a)
			codes = append(codes, a.Code)
		}
	}
	if len(subset) == 0 {
		return decimal.Zero, nil
	}

	sums, err := s.ledger.SumByAccount(ctx, time.Time{}, before, includePending, codes)
	if err != nil {
		return decimal.Zero, fmt.Errorf("beginningRetainedEarnings: %w", err)
	}

	// presenting every contributor on the credit side nets it correctly:
	// revenue and retained earnings add, expenses and dividends subtract,
	// contra accounts flip with their normal balance
	total := decimal.Zero
	for i := range subset {
		a := &subset[i]
		dc := sums[a.Code]
		bal := a.OpeningBalance.Add(a.NormalBalance.Signed(dc.Debit, dc.Credit))
		if a.NormalBalance != domain.NormalCredit {
			bal = bal.Neg()
		}
		total = total.Add(bal)
	}
	return total, nil
}

// categoryLines collects a category's accounts into line-item contributors.
// Balances are presented relative to the section's side: an account whose
// normal balance opposes the section (a contra account) shows negative.
func (b *balanceSet) categoryLines(cat domain.Category, side domain.NormalBalance) (decimal.Decimal, []domain.AccountLine) {
	total := decimal.Zero
	var lines []domain.AccountLine
	for i := range b.accounts {
		a := &b.accounts[i]
		if a.Category != cat {
			continue
		}
		amount := b.amounts[a.Code]
		if a.NormalBalance != side {
			amount = amount.Neg()
		}
		total = total.Add(amount)
		lines = append(lines, domain.AccountLine{Code: a.Code, Name: a.Name, Amount: amount})
	}
	return total, lines
}

// categoryTotal sums a category on its own normal-balance sign.
func (b *balanceSet) categoryTotal(cat domain.Category) decimal.Decimal {
	total := decimal.Zero
	for i := range b.accounts {
		if b.accounts[i].Category == cat {
			total = total.Add(b.amounts[b.accounts[i].Code])
		}
	}
	return total
}

// typeTotal nets a whole account type on its base side, so contra accounts
// subtract: sales returns reduce revenue, dividends reduce equity.
func (b *balanceSet) typeTotal(t domain.AccountType) decimal.Decimal {
	side := baseSide(t)
	total := decimal.Zero
	for i := range b.accounts {
		a := &b.accounts[i]
		if a.Type != t {
			continue
		}
		amount := b.amounts[a.Code]
		if a.NormalBalance != side {
			amount = amount.Neg()
		}
		total = total.Add(amount)
	}
	return total
}

func baseSide(t domain.AccountType) domain.NormalBalance {
	if t == domain.AccountTypeAsset || t == domain.AccountTypeExpense {
		return domain.NormalDebit
	}
	return domain.NormalCredit
}
