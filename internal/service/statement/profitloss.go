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

var revenueLines = []lineSpec{
	{"Gross Sales", domain.CategorySales},
	{"Sales Returns", domain.CategorySalesReturns},
	{"Sales Discounts", domain.CategorySalesDiscounts},
	{"Other Revenue", domain.CategoryOtherRevenue},
}

var operatingExpenseLines = []lineSpec{
	{"Operating Expenses", domain.CategoryOperatingExpenses},
	{"Payroll", domain.CategoryPayroll},
	{"Depreciation Expense", domain.CategoryDepreciation},
}

// GenerateProfitLoss assembles and persists a draft profit and loss statement
// covering the period's activity. Duplicate periods return ErrStatementExists.
func (s *Service) GenerateProfitLoss(ctx context.Context, pt domain.PeriodType, periodKey string, params Params) (*domain.Statement, error) {
	log := logging.FromContext(ctx)

	period, err := domain.ParsePeriod(pt, periodKey)
	if err != nil {
		return nil, fmt.Errorf("GenerateProfitLoss: %w", err)
	}
	params = params.withDefaults(s.config, period)

	if _, err := s.statements.GetCurrent(ctx, domain.StatementProfitLoss, pt, period.Key); err == nil {
		return nil, fmt.Errorf("GenerateProfitLoss: %w", domain.ErrStatementExists)
	} else if !errors.Is(err, domain.ErrStatementNotFound) {
		return nil, fmt.Errorf("GenerateProfitLoss: check existing: %w", err)
	}

	doc, meta, err := s.buildProfitLoss(ctx, period, params)
	if err != nil {
		return nil, fmt.Errorf("GenerateProfitLoss: %w", err)
	}

	seq, err := s.statements.NextSequence(ctx, domain.StatementProfitLoss, period.Key)
	if err != nil {
		return nil, fmt.Errorf("GenerateProfitLoss: %w", err)
	}

	now := time.Now().UTC()
	st := &domain.Statement{
		ID:              uuid.New(),
		StatementNumber: statementNumber(domain.StatementProfitLoss, period, seq),
		Type:            domain.StatementProfitLoss,
		StatementDate:   params.StatementDate,
		PeriodType:      period.Type,
		PeriodKey:       period.Key,
		PeriodStart:     period.Start,
		PeriodEnd:       period.End,
		Title:           "Profit and Loss - " + period.Label(),
		Status:          domain.StatusDraft,
		Version:         1,
		IsCurrent:       true,
		GeneratedBy:     params.GeneratedBy,
		GeneratedAt:     now,
		ProfitLoss:      doc,
		Metadata:        meta,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	st.RecordAudit(domain.AuditCreated, params.GeneratedBy, "generated for "+period.Label())

	if err := s.statements.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("GenerateProfitLoss: %w", err)
	}

	log.Info("profit and loss generated",
		"statement_number", st.StatementNumber,
		"period", period.Key,
		"net_income", doc.NetIncome.StringFixed(2),
	)
	return st, nil
}

// buildProfitLoss assembles the document from the period's ledger activity.
// Shared by generation and regeneration.
func (s *Service) buildProfitLoss(ctx context.Context, period domain.Period, params Params) (*domain.ProfitLossDoc, domain.StatementMetadata, error) {
	meta := domain.StatementMetadata{
		Tolerance:      params.Tolerance,
		IncludePending: params.IncludePending,
		AllowanceRate:  params.AllowanceRate,
	}

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return nil, meta, err
	}
	activity, err := s.activitySet(ctx, accounts, period.Start, period.End, params.IncludePending)
	if err != nil {
		return nil, meta, err
	}
	meta.AccountCount = len(accounts)

	doc := &domain.ProfitLossDoc{}

	doc.Revenue = buildSection(activity, domain.NormalCredit, revenueLines)
	gross, _ := activity.categoryLines(domain.CategorySales, domain.NormalCredit)
	returns, _ := activity.categoryLines(domain.CategorySalesReturns, domain.NormalCredit)
	discounts, _ := activity.categoryLines(domain.CategorySalesDiscounts, domain.NormalCredit)
	doc.NetSales = gross.Add(returns).Add(discounts)
	doc.TotalRevenue = doc.Revenue.Total

	s.buildCOGS(ctx, doc, activity, period, params, &meta)
	doc.GrossProfit = doc.TotalRevenue.Sub(doc.CostOfGoodsSold.Total)

	doc.OperatingExpenses = buildSection(activity, domain.NormalDebit, operatingExpenseLines)
	doc.OperatingIncome = doc.GrossProfit.Sub(doc.OperatingExpenses.Total)

	doc.OtherExpenses = buildSection(activity, domain.NormalDebit, []lineSpec{
		{"Other Expenses", domain.CategoryOtherExpenses},
	})
	doc.EarningsBeforeTax = doc.OperatingIncome.Sub(doc.OtherExpenses.Total)

	incomeTax, taxAccounts := activity.categoryLines(domain.CategoryIncomeTax, domain.NormalDebit)
	doc.IncomeTax = domain.LineItem{
		Label:    "Income Tax",
		Category: domain.CategoryIncomeTax,
		Amount:   incomeTax,
		Accounts: taxAccounts,
	}
	doc.NetIncome = doc.EarningsBeforeTax.Sub(incomeTax)

	doc.Margins = buildMargins(doc, &meta)
	return doc, meta, nil
}

// buildCOGS prefers accounts posted directly to cost_of_goods_sold; when none
// carry activity it falls back to the inventory formula, reading inventory
// balances at the period edges. The bucket is fault-contained: edge reads that
// fail zero the section and flag it instead of aborting assembly.
func (s *Service) buildCOGS(ctx context.Context, doc *domain.ProfitLossDoc, activity *balanceSet, period domain.Period, params Params, meta *domain.StatementMetadata) {
	log := logging.FromContext(ctx)

	direct, directAccounts := activity.categoryLines(domain.CategoryCOGS, domain.NormalDebit)
	if !direct.IsZero() {
		doc.COGSMethod = domain.COGSMethodDirect
		doc.CostOfGoodsSold = domain.Section{
			Lines: []domain.LineItem{{
				Label:    "Cost of Goods Sold",
				Category: domain.CategoryCOGS,
				Amount:   direct,
				Accounts: directAccounts,
			}},
			Total: direct,
		}
		return
	}

	doc.COGSMethod = domain.COGSMethodFormula
	beginning, err := s.categoryBalanceAsOf(ctx, activity.accounts, domain.CategoryInventory, period.Start.AddDate(0, 0, -1), params.IncludePending)
	var ending decimal.Decimal
	if err == nil {
		ending, err = s.categoryBalanceAsOf(ctx, activity.accounts, domain.CategoryInventory, period.End, params.IncludePending)
	}
	if err != nil {
		log.Warn("cost of goods sold bucket failed, zeroing", "error", err)
		doc.CostOfGoodsSold = domain.Section{
			Lines: []domain.LineItem{{
				Label:    "Cost of Goods Sold",
				Category: domain.CategoryCOGS,
				HasError: true,
			}},
		}
		meta.Warnings = append(meta.Warnings, "cost of goods sold could not be computed: "+err.Error())
		return
	}

	purchases := activity.categoryTotal(domain.CategoryPurchases).
		Add(activity.categoryTotal(domain.CategoryFreightIn)).
		Sub(activity.categoryTotal(domain.CategoryPurchaseReturns)).
		Sub(activity.categoryTotal(domain.CategoryPurchaseDiscounts))
	total := beginning.Add(purchases).Sub(ending)

	doc.CostOfGoodsSold = domain.Section{
		Lines: []domain.LineItem{
			{Label: "Beginning Inventory", Category: domain.CategoryInventory, Amount: beginning},
			{Label: "Net Purchases", Category: domain.CategoryPurchases, Amount: purchases},
			{Label: "Ending Inventory", Category: domain.CategoryInventory, Amount: ending.Neg()},
		},
		Total: total,
	}
}

// buildMargins divides by total revenue, zeroing all three when the period has
// none. A flagged zero is reportable; a division error is not.
func buildMargins(doc *domain.ProfitLossDoc, meta *domain.StatementMetadata) domain.Margins {
	if doc.TotalRevenue.IsZero() {
		meta.Warnings = append(meta.Warnings, "margins unavailable: total revenue is zero")
		return domain.Margins{HasError: true}
	}
	return domain.Margins{
		Gross:     doc.GrossProfit.Div(doc.TotalRevenue).Round(4),
		Operating: doc.OperatingIncome.Div(doc.TotalRevenue).Round(4),
		Net:       doc.NetIncome.Div(doc.TotalRevenue).Round(4),
	}
}
