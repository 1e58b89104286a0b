package statement

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookclose/bookclose/internal/config"
	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/repository"
	"github.com/bookclose/bookclose/internal/testutil"
)

func setupStatementTest(t *testing.T) (*sql.DB, *Service) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewService(
		repository.NewAccountRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewStatementRepository(db),
		&config.Config{
			ImbalanceTolerance: 0.01,
			AllowanceRate:      0.03,
			DefaultGeneratedBy: "system",
		},
	)
	return db, svc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedJanuaryBooks posts a small balanced month: stock issued for cash, an
// inventory purchase, a cash sale with its cost, and an operating expense.
func seedJanuaryBooks(t *testing.T, db *sql.DB) {
	t.Helper()
	testutil.SeedChart(t, db)

	testutil.SeedEntry(t, db, "1000", day(2024, 1, 5), dec("1000"), dec("0"))
	testutil.SeedEntry(t, db, "3000", day(2024, 1, 5), dec("0"), dec("1000"))

	testutil.SeedEntry(t, db, "1200", day(2024, 1, 6), dec("300"), dec("0"))
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 6), dec("0"), dec("300"))

	testutil.SeedEntry(t, db, "1000", day(2024, 1, 10), dec("500"), dec("0"))
	testutil.SeedEntry(t, db, "4000", day(2024, 1, 10), dec("0"), dec("500"))

	testutil.SeedEntry(t, db, "5000", day(2024, 1, 10), dec("200"), dec("0"))
	testutil.SeedEntry(t, db, "1200", day(2024, 1, 10), dec("0"), dec("200"))

	testutil.SeedEntry(t, db, "6000", day(2024, 1, 15), dec("100"), dec("0"))
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 15), dec("0"), dec("100"))
}

func TestBalance(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()

	testutil.SeedAccount(t, db, "1001", "Operating Cash", domain.AccountTypeAsset, domain.CategoryCash, dec("1000"))
	testutil.SeedEntry(t, db, "1001", day(2024, 1, 10), dec("500"), dec("0"))

	got, err := svc.Balance(ctx, "1001", day(2024, 1, 31))
	require.NoError(t, err)
	requireDecimal(t, "1500", got)

	// entries dated after the cutoff are invisible
	testutil.SeedEntry(t, db, "1001", day(2024, 2, 2), dec("999"), dec("0"))
	got, err = svc.Balance(ctx, "1001", day(2024, 1, 31))
	require.NoError(t, err)
	requireDecimal(t, "1500", got)

	// and counted once the cutoff passes them
	got, err = svc.Balance(ctx, "1001", day(2024, 2, 28))
	require.NoError(t, err)
	requireDecimal(t, "2499", got)

	// unknown accounts resolve to zero instead of failing
	got, err = svc.Balance(ctx, "9999", day(2024, 1, 31))
	require.NoError(t, err)
	requireDecimal(t, "0", got)

	_, err = db.Exec(`UPDATE accounts SET active = false WHERE code = '1001'`)
	require.NoError(t, err)
	got, err = svc.Balance(ctx, "1001", day(2024, 1, 31))
	require.NoError(t, err)
	requireDecimal(t, "0", got)
}

func TestGenerateBalanceSheet(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	st, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{GeneratedBy: "jane"})
	require.NoError(t, err)

	require.Equal(t, "BS-2024-01-001", st.StatementNumber)
	require.Equal(t, domain.StatusDraft, st.Status)
	require.Equal(t, 1, st.Version)
	require.True(t, st.IsCurrent)
	require.Equal(t, "jane", st.GeneratedBy)
	require.Equal(t, "Balance Sheet - January 2024", st.Title)

	doc := st.BalanceSheet
	require.NotNil(t, doc)
	requireDecimal(t, "1200", doc.Assets.Total)
	requireDecimal(t, "0", doc.Liabilities.Total)
	requireDecimal(t, "1200", doc.Equity.Total)
	requireDecimal(t, "1200", doc.TotalLiabilitiesAndEquity)
	requireDecimal(t, "200", doc.CurrentPeriodEarnings)
	require.True(t, doc.Balanced)
	requireDecimal(t, "0", doc.Difference)

	re := doc.Equity.Lines[1]
	require.Equal(t, "Retained Earnings", re.Label)
	requireDecimal(t, "200", re.Amount)
	require.False(t, re.HasError)

	require.False(t, st.Metadata.HasImbalance)
	require.Equal(t, 15, st.Metadata.AccountCount)
	require.Len(t, st.AuditTrail, 1)
	require.Equal(t, domain.AuditCreated, st.AuditTrail[0].Action)

	// no profit and loss exists yet, so return ratios fall back to the
	// sheet's own current period earnings
	requireDecimal(t, "0.1667", st.Ratios["return_on_assets"])
	requireDecimal(t, "0.1667", st.Ratios["return_on_equity"])

	// one statement per period
	_, err = svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.ErrorIs(t, err, domain.ErrStatementExists)

	// a different period is fine
	_, err = svc.GenerateBalanceSheet(ctx, domain.PeriodQuarterly, "2024-Q1", Params{})
	require.NoError(t, err)
}

func TestGenerateBalanceSheetAllowanceImbalance(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	testutil.SeedChart(t, db)

	// a credit sale leaves receivables on the books; the allowance heuristic
	// reduces assets with no offsetting posting, which the identity check
	// reports without blocking generation
	testutil.SeedEntry(t, db, "1100", day(2024, 1, 10), dec("500"), dec("0"))
	testutil.SeedEntry(t, db, "4000", day(2024, 1, 10), dec("0"), dec("500"))

	st, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	require.Equal(t, domain.StatusDraft, st.Status)
	require.True(t, st.Metadata.HasImbalance)
	requireDecimal(t, "-15", st.Metadata.ImbalanceDifference)
	require.NotEmpty(t, st.Metadata.Warnings)
	require.False(t, st.BalanceSheet.Balanced)

	current := st.BalanceSheet.Assets.Current
	require.Equal(t, "Allowance for Doubtful Accounts", current.Lines[2].Label)
	requireDecimal(t, "-15", current.Lines[2].Amount)
	requireDecimal(t, "485", current.Total)
}

func TestGenerateBalanceSheetPersistsSmallImbalance(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	// an unpaired posting throws the books off by 0.02
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 20), dec("0.02"), dec("0"))

	st, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	require.Equal(t, domain.StatusDraft, st.Status)
	require.True(t, st.Metadata.HasImbalance)
	requireDecimal(t, "0.02", st.Metadata.ImbalanceDifference)
	require.False(t, st.BalanceSheet.Balanced)
	requireDecimal(t, "0.02", st.BalanceSheet.Difference)

	fetched, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	require.True(t, fetched.Metadata.HasImbalance)
}

func TestGenerateProfitLoss(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	st, err := svc.GenerateProfitLoss(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	require.Equal(t, "PL-2024-01-001", st.StatementNumber)
	require.Equal(t, "Profit and Loss - January 2024", st.Title)

	doc := st.ProfitLoss
	require.NotNil(t, doc)
	requireDecimal(t, "500", doc.NetSales)
	requireDecimal(t, "500", doc.TotalRevenue)
	require.Equal(t, domain.COGSMethodDirect, doc.COGSMethod)
	requireDecimal(t, "200", doc.CostOfGoodsSold.Total)
	requireDecimal(t, "300", doc.GrossProfit)
	requireDecimal(t, "100", doc.OperatingExpenses.Total)
	requireDecimal(t, "200", doc.OperatingIncome)
	requireDecimal(t, "200", doc.EarningsBeforeTax)
	requireDecimal(t, "0", doc.IncomeTax.Amount)
	requireDecimal(t, "200", doc.NetIncome)

	require.False(t, doc.Margins.HasError)
	requireDecimal(t, "0.6", doc.Margins.Gross)
	requireDecimal(t, "0.4", doc.Margins.Operating)
	requireDecimal(t, "0.4", doc.Margins.Net)

	_, err = svc.GenerateProfitLoss(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.ErrorIs(t, err, domain.ErrStatementExists)
}

func TestGenerateProfitLossInventoryFormula(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	testutil.SeedChart(t, db)

	// stock bought in December sits at 100 when January opens
	testutil.SeedEntry(t, db, "1200", day(2023, 12, 20), dec("100"), dec("0"))
	testutil.SeedEntry(t, db, "1000", day(2023, 12, 20), dec("0"), dec("100"))

	// January buys more through a purchases account and sells for cash; no
	// direct cost postings exist, so the inventory formula takes over
	testutil.SeedEntry(t, db, "5200", day(2024, 1, 8), dec("50"), dec("0"))
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 8), dec("0"), dec("50"))
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 12), dec("120"), dec("0"))
	testutil.SeedEntry(t, db, "4000", day(2024, 1, 12), dec("0"), dec("120"))

	st, err := svc.GenerateProfitLoss(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	doc := st.ProfitLoss
	require.Equal(t, domain.COGSMethodFormula, doc.COGSMethod)
	require.Len(t, doc.CostOfGoodsSold.Lines, 3)
	requireDecimal(t, "100", doc.CostOfGoodsSold.Lines[0].Amount)
	requireDecimal(t, "50", doc.CostOfGoodsSold.Lines[1].Amount)
	requireDecimal(t, "-100", doc.CostOfGoodsSold.Lines[2].Amount)
	requireDecimal(t, "50", doc.CostOfGoodsSold.Total)
	requireDecimal(t, "70", doc.GrossProfit)
}

func TestTrialBalance(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	tb, err := svc.TrialBalance(ctx, day(2024, 1, 31), Params{})
	require.NoError(t, err)

	require.True(t, tb.Balanced)
	requireDecimal(t, "0", tb.Difference)
	requireDecimal(t, "1500", tb.TotalDebit)
	requireDecimal(t, "1500", tb.TotalCredit)
	require.Len(t, tb.Rows, 15)

	byCode := make(map[string]TrialBalanceRow, len(tb.Rows))
	for _, row := range tb.Rows {
		byCode[row.AccountCode] = row
	}
	requireDecimal(t, "1100", byCode["1000"].Debit)
	requireDecimal(t, "100", byCode["1200"].Debit)
	requireDecimal(t, "1000", byCode["3000"].Credit)
	requireDecimal(t, "500", byCode["4000"].Credit)
	requireDecimal(t, "200", byCode["5000"].Debit)

	check, err := svc.ValidateForClose(ctx, day(2024, 1, 31), Params{})
	require.NoError(t, err)
	require.True(t, check.Valid)
	require.Empty(t, check.Reason)

	// pending entries stay out unless asked for
	testutil.SeedEntryStatus(t, db, "1000", day(2024, 1, 25), dec("40"), dec("0"), domain.EntryStatusPending)

	tb, err = svc.TrialBalance(ctx, day(2024, 1, 31), Params{})
	require.NoError(t, err)
	requireDecimal(t, "1500", tb.TotalDebit)

	tb, err = svc.TrialBalance(ctx, day(2024, 1, 31), Params{IncludePending: true})
	require.NoError(t, err)
	requireDecimal(t, "1540", tb.TotalDebit)
	require.False(t, tb.Balanced)

	check, err = svc.ValidateForClose(ctx, day(2024, 1, 31), Params{IncludePending: true})
	require.NoError(t, err)
	require.False(t, check.Valid)
	require.Contains(t, check.Reason, "out of balance")
	requireDecimal(t, "40", check.Difference)
}

func TestValidateEquation(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	check, err := svc.ValidateEquation(ctx, day(2024, 1, 31), Params{})
	require.NoError(t, err)

	require.True(t, check.Balanced)
	requireDecimal(t, "1200", check.Assets)
	requireDecimal(t, "0", check.Liabilities)
	requireDecimal(t, "1200", check.Equity)
	requireDecimal(t, "0", check.Difference)
}

func TestStatementTransitions(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	st, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	// the lifecycle is strictly linear
	_, err = svc.Transition(ctx, st.ID, domain.StatusApproved, "jane", "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	st, err = svc.Transition(ctx, st.ID, domain.StatusReview, "jane", "ready for review")
	require.NoError(t, err)
	require.Equal(t, domain.StatusReview, st.Status)

	st, err = svc.Transition(ctx, st.ID, domain.StatusApproved, "lee", "")
	require.NoError(t, err)
	require.NotNil(t, st.ApprovedBy)
	require.Equal(t, "lee", *st.ApprovedBy)
	require.NotNil(t, st.ApprovedAt)

	// balance sheets end in final
	st, err = svc.Transition(ctx, st.ID, domain.StatusFinal, "lee", "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusFinal, st.Status)
	require.NotNil(t, st.PublishedAt)
	require.Len(t, st.AuditTrail, 4)

	_, err = svc.Transition(ctx, st.ID, domain.StatusDraft, "lee", "")
	require.ErrorIs(t, err, domain.ErrPublishedImmutable)

	fetched, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFinal, fetched.Status)
	require.NotNil(t, fetched.PublishedAt)
	require.Len(t, fetched.AuditTrail, 4)
}

func TestDeleteStatement(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	st, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, st.ID))
	_, err = svc.Get(ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrStatementNotFound)

	// anything past draft is immovable
	st, err = svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, st.ID, domain.StatusReview, "jane", "")
	require.NoError(t, err)

	err = svc.Delete(ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrNotDraft)
	require.Equal(t, 1, testutil.CountStatements(t, db, st.StatementNumber))
}

func TestRegenerate(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	v1, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	// a late cash sale changes the month after the statement was cut
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 20), dec("50"), dec("0"))
	testutil.SeedEntry(t, db, "4000", day(2024, 1, 20), dec("0"), dec("50"))

	v2, err := svc.Regenerate(ctx, v1.ID, Params{GeneratedBy: "jane"})
	require.NoError(t, err)

	require.Equal(t, v1.StatementNumber, v2.StatementNumber)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, domain.StatusDraft, v2.Status)
	require.True(t, v2.IsCurrent)
	require.NotNil(t, v2.PreviousVersionID)
	require.Equal(t, v1.ID, *v2.PreviousVersionID)
	requireDecimal(t, "1250", v2.BalanceSheet.Assets.Total)

	require.Len(t, v2.VersionHistory, 1)
	bump := v2.VersionHistory[0]
	require.Equal(t, 2, bump.Version)
	require.Equal(t, "jane", bump.ChangedBy)
	require.Equal(t, []domain.FieldChange{
		{Field: "total_assets", OldValue: "1200.00", NewValue: "1250.00"},
		{Field: "total_equity", OldValue: "1200.00", NewValue: "1250.00"},
	}, bump.Changes)

	require.Equal(t, domain.AuditRegenerated, v2.AuditTrail[len(v2.AuditTrail)-1].Action)

	old, err := svc.Get(ctx, v1.ID)
	require.NoError(t, err)
	require.False(t, old.IsCurrent)
	requireDecimal(t, "1200", old.BalanceSheet.Assets.Total)

	versions, err := svc.Versions(ctx, v1.StatementNumber)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, 1, versions[0].Version)
	require.Equal(t, 2, versions[1].Version)

	// only the current version can be regenerated
	_, err = svc.Regenerate(ctx, v1.ID, Params{})
	require.ErrorIs(t, err, domain.ErrStatementNotFound)
}

func TestRatiosPreferMatchingProfitLoss(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	pl, err := svc.GenerateProfitLoss(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)
	requireDecimal(t, "200", pl.ProfitLoss.NetIncome)

	// revenue posted after the profit and loss was cut: the sheet sees it,
	// the statement-sourced net income does not
	testutil.SeedEntry(t, db, "1000", day(2024, 1, 28), dec("50"), dec("0"))
	testutil.SeedEntry(t, db, "4000", day(2024, 1, 28), dec("0"), dec("50"))

	bs, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	requireDecimal(t, "250", bs.BalanceSheet.CurrentPeriodEarnings)
	requireDecimal(t, "1250", bs.BalanceSheet.Assets.Total)
	// 200 / 1250, not 250 / 1250
	requireDecimal(t, "0.16", bs.Ratios["return_on_assets"])
}

func TestRatiosUsePriorPeriodBeginnings(t *testing.T) {
	db, svc := setupStatementTest(t)
	ctx := context.Background()
	seedJanuaryBooks(t, db)

	_, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-01", Params{})
	require.NoError(t, err)

	// February sells down inventory
	testutil.SeedEntry(t, db, "1000", day(2024, 2, 5), dec("200"), dec("0"))
	testutil.SeedEntry(t, db, "4000", day(2024, 2, 5), dec("0"), dec("200"))
	testutil.SeedEntry(t, db, "5000", day(2024, 2, 8), dec("60"), dec("0"))
	testutil.SeedEntry(t, db, "1200", day(2024, 2, 8), dec("0"), dec("60"))

	_, err = svc.GenerateProfitLoss(ctx, domain.PeriodMonthly, "2024-02", Params{})
	require.NoError(t, err)

	feb, err := svc.GenerateBalanceSheet(ctx, domain.PeriodMonthly, "2024-02", Params{})
	require.NoError(t, err)

	// January closed at 100, February at 40: 60 / avg(100, 40)
	requireDecimal(t, "0.8571", feb.Ratios["inventory_turnover"])

	ratios, err := svc.CalculateRatios(ctx, feb)
	require.NoError(t, err)
	requireDecimal(t, "0.8571", ratios["inventory_turnover"])

	pl, err := svc.GetByNumber(ctx, "PL-2024-02-001")
	require.NoError(t, err)
	_, err = svc.CalculateRatios(ctx, pl)
	require.ErrorIs(t, err, domain.ErrNotBalanceSheet)
}
