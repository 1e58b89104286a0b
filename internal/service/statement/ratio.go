package statement

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

// ratioInputs are the assembled totals the ratio set is derived from. They are
// collected from persisted statements, never from fresh ledger reads, so the
// same statement always yields the same ratios.
type ratioInputs struct {
	currentAssets      decimal.Decimal
	currentLiabilities decimal.Decimal
	inventory          decimal.Decimal
	receivables        decimal.Decimal
	payables           decimal.Decimal
	totalAssets        decimal.Decimal
	totalLiabilities   decimal.Decimal
	totalEquity        decimal.Decimal
	netIncome          decimal.Decimal
	netSales           decimal.Decimal
	costOfGoodsSold    decimal.Decimal

	beginningInventory  decimal.Decimal
	beginningReceivable decimal.Decimal
	beginningPayable    decimal.Decimal
}

// computeRatios guards every division: a zero denominator yields a zero ratio
// rather than an error, so one degenerate input never poisons the set.
func computeRatios(in ratioInputs) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"current_ratio":        safeDiv(in.currentAssets, in.currentLiabilities),
		"quick_ratio":          safeDiv(in.currentAssets.Sub(in.inventory), in.currentLiabilities),
		"debt_to_equity":       safeDiv(in.totalLiabilities, in.totalEquity),
		"return_on_assets":     safeDiv(in.netIncome, in.totalAssets),
		"return_on_equity":     safeDiv(in.netIncome, in.totalEquity),
		"inventory_turnover":   safeDiv(in.costOfGoodsSold, decimal.Avg(in.beginningInventory, in.inventory)),
		"receivables_turnover": safeDiv(in.netSales, decimal.Avg(in.beginningReceivable, in.receivables)),
		"payables_turnover":    safeDiv(in.costOfGoodsSold, decimal.Avg(in.beginningPayable, in.payables)),
	}
}

func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Round(4)
}

// CalculateRatios recomputes the ratio set for a persisted balance sheet,
// reading the matching profit and loss statement and the prior period's
// balance sheet when they exist.
func (s *Service) CalculateRatios(ctx context.Context, st *domain.Statement) (map[string]decimal.Decimal, error) {
	if st.Type != domain.StatementBalanceSheet || st.BalanceSheet == nil {
		return nil, fmt.Errorf("CalculateRatios: %w", domain.ErrNotBalanceSheet)
	}
	period := domain.Period{Type: st.PeriodType, Key: st.PeriodKey, Start: st.PeriodStart, End: st.PeriodEnd}
	return s.ratiosForBalanceSheet(ctx, st.BalanceSheet, period), nil
}

func (s *Service) ratiosForBalanceSheet(ctx context.Context, doc *domain.BalanceSheetDoc, period domain.Period) map[string]decimal.Decimal {
	return computeRatios(s.buildRatioInputs(ctx, doc, period))
}

// buildRatioInputs reads the balance sheet's own lines, then fills
// cross-statement inputs. Net income prefers the matching-period profit and
// loss, falling back to the sheet's own current period earnings. Beginning
// balances come from the immediately preceding period's balance sheet,
// defaulting to the current values when none has been generated yet.
func (s *Service) buildRatioInputs(ctx context.Context, doc *domain.BalanceSheetDoc, period domain.Period) ratioInputs {
	log := logging.FromContext(ctx)

	in := ratioInputs{
		currentAssets:      doc.Assets.Current.Total,
		currentLiabilities: doc.Liabilities.Current.Total,
		inventory:          sectionCategoryTotal(doc.Assets.Current, domain.CategoryInventory),
		receivables:        sectionCategoryTotal(doc.Assets.Current, domain.CategoryReceivables),
		payables:           sectionCategoryTotal(doc.Liabilities.Current, domain.CategoryPayables),
		totalAssets:        doc.Assets.Total,
		totalLiabilities:   doc.Liabilities.Total,
		totalEquity:        doc.Equity.Total,
		netIncome:          doc.CurrentPeriodEarnings,
	}

	pl, err := s.statements.GetCurrent(ctx, domain.StatementProfitLoss, period.Type, period.Key)
	switch {
	case err == nil && pl.ProfitLoss != nil:
		in.netIncome = pl.ProfitLoss.NetIncome
		in.netSales = pl.ProfitLoss.NetSales
		in.costOfGoodsSold = pl.ProfitLoss.CostOfGoodsSold.Total
	case err != nil && !errors.Is(err, domain.ErrStatementNotFound):
		log.Warn("ratio inputs: profit and loss lookup failed", "period", period.Key, "error", err)
	}

	in.beginningInventory = in.inventory
	in.beginningReceivable = in.receivables
	in.beginningPayable = in.payables

	prior := period.Prior()
	prev, err := s.statements.GetCurrent(ctx, domain.StatementBalanceSheet, period.Type, prior.Key)
	switch {
	case err == nil && prev.BalanceSheet != nil:
		in.beginningInventory = sectionCategoryTotal(prev.BalanceSheet.Assets.Current, domain.CategoryInventory)
		in.beginningReceivable = sectionCategoryTotal(prev.BalanceSheet.Assets.Current, domain.CategoryReceivables)
		in.beginningPayable = sectionCategoryTotal(prev.BalanceSheet.Liabilities.Current, domain.CategoryPayables)
	case err != nil && !errors.Is(err, domain.ErrStatementNotFound):
		log.Warn("ratio inputs: prior period lookup failed", "period", prior.Key, "error", err)
	}

	return in
}

// sectionCategoryTotal sums every line carrying the category, so netted pairs
// such as gross receivables plus the allowance line resolve to the net figure.
func sectionCategoryTotal(sec domain.Section, cat domain.Category) decimal.Decimal {
	total := decimal.Zero
	for _, line := range sec.Lines {
		if line.Category == cat {
			total = total.Add(line.Amount)
		}
	}
	return total
}
