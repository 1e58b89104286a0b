package statement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

// lineSpec routes one category to one statement line. The mapping is
// declarative and total: every category an account can carry has a line, and
// account creation already rejected categories outside the type's set, so
// assembly never infers anything from account names.
type lineSpec struct {
	label    string
	category domain.Category
}

var currentAssetLines = []lineSpec{
	{"Cash and Cash Equivalents", domain.CategoryCash},
	{"Accounts Receivable", domain.CategoryReceivables},
	{"Inventory", domain.CategoryInventory},
	{"Prepaid Expenses", domain.CategoryPrepaidExpenses},
}

var nonCurrentAssetLines = []lineSpec{
	{"Property, Plant and Equipment", domain.CategoryFixedAssets},
	{"Accumulated Depreciation", domain.CategoryAccumDepreciation},
	{"Intangible Assets", domain.CategoryIntangibles},
	{"Investments", domain.CategoryInvestments},
	{"Other Assets", domain.CategoryOtherAssets},
}

var currentLiabilityLines = []lineSpec{
	{"Accounts Payable", domain.CategoryPayables},
	{"Accrued Expenses", domain.CategoryAccruedExpenses},
	{"Short-Term Debt", domain.CategoryShortTermDebt},
	{"Deferred Revenue", domain.CategoryDeferredRevenue},
}

var nonCurrentLiabilityLines = []lineSpec{
	{"Long-Term Debt", domain.CategoryLongTermDebt},
	{"Deferred Tax Liabilities", domain.CategoryDeferredTax},
	{"Pension Obligations", domain.CategoryPension},
	{"Other Liabilities", domain.CategoryOtherLiabilities},
}

func buildSection(bals *balanceSet, side domain.NormalBalance, specs []lineSpec) domain.Section {
	sec := domain.Section{Lines: make([]domain.LineItem, 0, len(specs))}
	for _, spec := range specs {
		amount, accounts := bals.categoryLines(spec.category, side)
		sec.Lines = append(sec.Lines, domain.LineItem{
			Label:    spec.label,
			Category: spec.category,
			Amount:   amount,
			Accounts: accounts,
		})
		sec.Total = sec.Total.Add(amount)
	}
	return sec
}

// applyAllowance nets receivables by inserting the allowance-for-doubtful
// contra line directly after the gross receivables line.
func applyAllowance(sec *domain.Section, rate decimal.Decimal) {
	lines := make([]domain.LineItem, 0, len(sec.Lines)+1)
	inserted := false
	for _, line := range sec.Lines {
		lines = append(lines, line)
		if !inserted && line.Category == domain.CategoryReceivables {
			allowance := line.Amount.Mul(rate).Round(2).Neg()
			lines = append(lines, domain.LineItem{
				Label:    "Allowance for Doubtful Accounts",
				Category: domain.CategoryReceivables,
				Amount:   allowance,
			})
			sec.Total = sec.Total.Add(allowance)
			inserted = true
		}
	}
	sec.Lines = lines
}

// GenerateBalanceSheet assembles and persists a draft balance sheet for the
// period. One statement exists per period; a second generation returns
// ErrStatementExists, as does losing a concurrent race at the insert.
func (s *Service) GenerateBalanceSheet(ctx context.Context, pt domain.PeriodType, periodKey string, params Params) (*domain.Statement, error) {
	log := logging.FromContext(ctx)

	period, err := domain.ParsePeriod(pt, periodKey)
	if err != nil {
		return nil, fmt.Errorf("GenerateBalanceSheet: %w", err)
	}
	params = params.withDefaults(s.config, period)

	if _, err := s.statements.GetCurrent(ctx, domain.StatementBalanceSheet, pt, period.Key); err == nil {
		return nil, fmt.Errorf("GenerateBalanceSheet: %w", domain.ErrStatementExists)
	} else if !errors.Is(err, domain.ErrStatementNotFound) {
		return nil, fmt.Errorf("GenerateBalanceSheet: check existing: %w", err)
	}

	doc, ratios, meta, err := s.buildBalanceSheet(ctx, period, params)
	if err != nil {
		return nil, fmt.Errorf("GenerateBalanceSheet: %w", err)
	}

	seq, err := s.statements.NextSequence(ctx, domain.StatementBalanceSheet, period.Key)
	if err != nil {
		return nil, fmt.Errorf("GenerateBalanceSheet: %w", err)
	}

	now := time.Now().UTC()
	st := &domain.Statement{
		ID:              uuid.New(),
		StatementNumber: statementNumber(domain.StatementBalanceSheet, period, seq),
		Type:            domain.StatementBalanceSheet,
		StatementDate:   params.StatementDate,
		PeriodType:      period.Type,
		PeriodKey:       period.Key,
		PeriodStart:     period.Start,
		PeriodEnd:       period.End,
		Title:           "Balance Sheet - " + period.Label(),
		Status:          domain.StatusDraft,
		Version:         1,
		IsCurrent:       true,
		GeneratedBy:     params.GeneratedBy,
		GeneratedAt:     now,
		BalanceSheet:    doc,
		Ratios:          ratios,
		Metadata:        meta,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	st.RecordAudit(domain.AuditCreated, params.GeneratedBy, "generated for "+period.Label())

	if err := s.statements.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("GenerateBalanceSheet: %w", err)
	}

	log.Info("balance sheet generated",
		"statement_number", st.StatementNumber,
		"period", period.Key,
		"balanced", doc.Balanced,
	)
	return st, nil
}

// buildBalanceSheet assembles the document fresh from the ledger. Shared by
// generation and regeneration so both see identical semantics.
func (s *Service) buildBalanceSheet(ctx context.Context, period domain.Period, params Params) (*domain.BalanceSheetDoc, map[string]decimal.Decimal, domain.StatementMetadata, error) {
	meta := domain.StatementMetadata{
		Tolerance:      params.Tolerance,
		IncludePending: params.IncludePending,
		AllowanceRate:  params.AllowanceRate,
	}

	bals, err := s.asOfBalances(ctx, period.End, params.IncludePending)
	if err != nil {
		return nil, nil, meta, err
	}
	meta.AccountCount = len(bals.accounts)

	assets := domain.SectionGroup{
		Current:    buildSection(bals, domain.NormalDebit, currentAssetLines),
		NonCurrent: buildSection(bals, domain.NormalDebit, nonCurrentAssetLines),
	}
	applyAllowance(&assets.Current, params.AllowanceRate)
	assets.Total = assets.Current.Total.Add(assets.NonCurrent.Total)

	liabilities := domain.SectionGroup{
		Current:    buildSection(bals, domain.NormalCredit, currentLiabilityLines),
		NonCurrent: buildSection(bals, domain.NormalCredit, nonCurrentLiabilityLines),
	}
	liabilities.Total = liabilities.Current.Total.Add(liabilities.NonCurrent.Total)

	equity, periodEarnings := s.buildEquity(ctx, bals, period, params, &meta)

	doc := &domain.BalanceSheetDoc{
		Assets:                assets,
		Liabilities:           liabilities,
		Equity:                equity,
		CurrentPeriodEarnings: periodEarnings,
	}
	doc.TotalLiabilitiesAndEquity = liabilities.Total.Add(equity.Total)
	doc.Difference = assets.Total.Sub(doc.TotalLiabilitiesAndEquity)
	doc.Balanced = doc.Difference.Abs().Cmp(params.Tolerance) <= 0
	if !doc.Balanced {
		meta.HasImbalance = true
		meta.ImbalanceDifference = doc.Difference
		meta.Warnings = append(meta.Warnings, fmt.Sprintf(
			"accounting identity out of tolerance: assets %s vs liabilities and equity %s",
			assets.Total.StringFixed(2), doc.TotalLiabilitiesAndEquity.StringFixed(2),
		))
	}

	ratios := s.ratiosForBalanceSheet(ctx, doc, period)
	return doc, ratios, meta, nil
}

// buildEquity rolls retained earnings forward: beginning balance plus the
// period's earnings minus the period's dividends. The bucket is
// fault-contained: if its extra ledger reads fail, the line is zeroed and
// flagged rather than aborting the whole assembly.
func (s *Service) buildEquity(ctx context.Context, bals *balanceSet, period domain.Period, params Params, meta *domain.StatementMetadata) (domain.Section, decimal.Decimal) {
	log := logging.FromContext(ctx)

	contributedTotal, contributedLines := bals.categoryLines(domain.CategoryContributedCapital, domain.NormalCredit)
	otherTotal, otherLines := bals.categoryLines(domain.CategoryOtherEquity, domain.NormalCredit)

	reLine := domain.LineItem{Label: "Retained Earnings", Category: domain.CategoryRetainedEarnings}
	var activity *balanceSet
	periodEarnings := decimal.Zero

	beginningRE, err := s.beginningRetainedEarnings(ctx, bals.accounts, period.Start.AddDate(0, 0, -1), params.IncludePending)
	if err == nil {
		activity, err = s.activitySet(ctx, bals.accounts, period.Start, period.End, params.IncludePending)
	}
	if err != nil {
		log.Warn("retained earnings bucket failed, zeroing", "error", err)
		reLine.HasError = true
		meta.Warnings = append(meta.Warnings, "retained earnings could not be computed: "+err.Error())
	} else {
		periodEarnings = activity.typeTotal(domain.AccountTypeRevenue).Sub(activity.typeTotal(domain.AccountTypeExpense))
		periodDividends := activity.categoryTotal(domain.CategoryDividends)
		reLine.Amount = beginningRE.Add(periodEarnings).Sub(periodDividends)

		_, reAccounts := bals.categoryLines(domain.CategoryRetainedEarnings, domain.NormalCredit)
		_, dividendAccounts := activity.categoryLines(domain.CategoryDividends, domain.NormalCredit)
		reLine.Accounts = append(reAccounts, dividendAccounts...)
		reLine.Accounts = append(reLine.Accounts, domain.AccountLine{
			Name:   "Current Period Earnings",
			Amount: periodEarnings,
		})
	}

	sec := domain.Section{
		Lines: []domain.LineItem{
			{Label: "Contributed Capital", Category: domain.CategoryContributedCapital, Amount: contributedTotal, Accounts: contributedLines},
			reLine,
			{Label: "Other Equity", Category: domain.CategoryOtherEquity, Amount: otherTotal, Accounts: otherLines},
		},
	}
	sec.Total = contributedTotal.Add(reLine.Amount).Add(otherTotal)
	return sec, periodEarnings
}

func statementNumber(st domain.StatementType, period domain.Period, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", st.NumberPrefix(), period.Key, seq)
}
