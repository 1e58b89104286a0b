package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

// TrialBalanceRow is one account's net position placed in its natural column.
type TrialBalanceRow struct {
	AccountCode string
	AccountName string
	Type        domain.AccountType
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// TrialBalance lists every active account as of a date with column totals.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
	Balanced    bool
}

// CloseValidation is the explicit result of the period-close check. Callers
// branch on Valid; an unbalanced ledger is a result here, not an error.
type CloseValidation struct {
	Valid      bool
	Reason     string
	Difference decimal.Decimal
}

// EquationCheck reports the accounting identity at a point in time.
type EquationCheck struct {
	Balanced    bool
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	Equity      decimal.Decimal
	Difference  decimal.Decimal
}

// TrialBalance folds debits and credits per account through the as-of date,
// opening balances included. A positive net lands in the debit column, a
// negative net in the credit column, so the columns reconcile the way a
// hand-kept trial balance would.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time, params Params) (*TrialBalance, error) {
	params = params.normalized(s.config)

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("TrialBalance: %w", err)
	}
	sums, err := s.ledger.SumByAccount(ctx, time.Time{}, asOf, params.IncludePending, nil)
	if err != nil {
		return nil, fmt.Errorf("TrialBalance: %w", err)
	}

	tb := &TrialBalance{AsOf: asOf, Rows: make([]TrialBalanceRow, 0, len(accounts))}
	for _, acc := range accounts {
		dc := sums[acc.Code]
		net := dc.Debit.Sub(dc.Credit)
		if acc.NormalBalance == domain.NormalDebit {
			net = net.Add(acc.OpeningBalance)
		} else {
			net = net.Sub(acc.OpeningBalance)
		}

		row := TrialBalanceRow{AccountCode: acc.Code, AccountName: acc.Name, Type: acc.Type}
		switch {
		case net.IsPositive():
			row.Debit = net
		case net.IsNegative():
			row.Credit = net.Neg()
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
	}

	tb.Difference = tb.TotalDebit.Sub(tb.TotalCredit)
	tb.Balanced = tb.Difference.Abs().Cmp(params.Tolerance) <= 0
	return tb, nil
}

// ValidateForClose runs the trial balance and reports an explicit verdict.
// Period-close callers must branch on the result, so an unbalanced ledger
// comes back as Valid=false with a reason rather than as an error.
func (s *Service) ValidateForClose(ctx context.Context, asOf time.Time, params Params) (*CloseValidation, error) {
	log := logging.FromContext(ctx)

	tb, err := s.TrialBalance(ctx, asOf, params)
	if err != nil {
		return nil, fmt.Errorf("ValidateForClose: %w", err)
	}
	if !tb.Balanced {
		log.Warn("trial balance failed close validation",
			"as_of", asOf.Format("2006-01-02"),
			"difference", tb.Difference.StringFixed(2),
		)
		return &CloseValidation{
			Reason:     fmt.Sprintf("trial balance out of balance: debits %s, credits %s", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2)),
			Difference: tb.Difference,
		}, nil
	}
	return &CloseValidation{Valid: true}, nil
}

// ValidateEquation checks assets against liabilities plus equity as of a
// date. Revenue and expense balances not yet closed to retained earnings
// count toward equity, so the identity holds mid-period too.
func (s *Service) ValidateEquation(ctx context.Context, asOf time.Time, params Params) (*EquationCheck, error) {
	params = params.normalized(s.config)

	bals, err := s.asOfBalances(ctx, asOf, params.IncludePending)
	if err != nil {
		return nil, fmt.Errorf("ValidateEquation: %w", err)
	}

	earnings := bals.typeTotal(domain.AccountTypeRevenue).Sub(bals.typeTotal(domain.AccountTypeExpense))
	check := &EquationCheck{
		Assets:      bals.typeTotal(domain.AccountTypeAsset),
		Liabilities: bals.typeTotal(domain.AccountTypeLiability),
		Equity:      bals.typeTotal(domain.AccountTypeEquity).Add(earnings),
	}
	check.Difference = check.Assets.Sub(check.Liabilities.Add(check.Equity))
	check.Balanced = check.Difference.Abs().Cmp(params.Tolerance) <= 0
	return check, nil
}
