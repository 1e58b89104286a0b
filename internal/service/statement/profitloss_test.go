package statement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookclose/bookclose/internal/config"
	"github.com/bookclose/bookclose/internal/domain"
)

func newTestService() *Service {
	return &Service{
		config: &config.Config{
			ImbalanceTolerance: 0.01,
			AllowanceRate:      0.03,
			DefaultGeneratedBy: "system",
		},
	}
}

func TestBuildMargins(t *testing.T) {
	doc := &domain.ProfitLossDoc{
		TotalRevenue:    dec("200"),
		GrossProfit:     dec("80"),
		OperatingIncome: dec("50"),
		NetIncome:       dec("30"),
	}
	meta := domain.StatementMetadata{}

	margins := buildMargins(doc, &meta)

	require.False(t, margins.HasError)
	requireDecimal(t, "0.4", margins.Gross)
	requireDecimal(t, "0.25", margins.Operating)
	requireDecimal(t, "0.15", margins.Net)
	require.Empty(t, meta.Warnings)
}

func TestBuildMarginsZeroRevenue(t *testing.T) {
	doc := &domain.ProfitLossDoc{NetIncome: dec("-30")}
	meta := domain.StatementMetadata{}

	margins := buildMargins(doc, &meta)

	require.True(t, margins.HasError)
	requireDecimal(t, "0", margins.Gross)
	requireDecimal(t, "0", margins.Operating)
	requireDecimal(t, "0", margins.Net)
	require.Len(t, meta.Warnings, 1)
}

func TestBuildCOGSPrefersDirectPostings(t *testing.T) {
	activity := testSet(
		[]domain.Account{
			testAccount("5000", "Cost of Goods Sold", domain.AccountTypeExpense, domain.CategoryCOGS),
			testAccount("5200", "Purchases", domain.AccountTypeExpense, domain.CategoryPurchases),
		},
		map[string]string{"5000": "75", "5200": "40"},
	)
	doc := &domain.ProfitLossDoc{}
	meta := domain.StatementMetadata{}

	var svc Service
	svc.buildCOGS(context.Background(), doc, activity, domain.Period{}, Params{}, &meta)

	require.Equal(t, domain.COGSMethodDirect, doc.COGSMethod)
	require.Len(t, doc.CostOfGoodsSold.Lines, 1)
	requireDecimal(t, "75", doc.CostOfGoodsSold.Total)
	require.Empty(t, meta.Warnings)
}

func TestDefaultPeriodParams(t *testing.T) {
	period, err := domain.ParsePeriod(domain.PeriodMonthly, "2024-03")
	require.NoError(t, err)

	svc := newTestService()
	params := Params{}.withDefaults(svc.config, period)

	require.Equal(t, period.End, params.StatementDate)
	requireDecimal(t, "0.01", params.Tolerance)
	requireDecimal(t, "0.03", params.AllowanceRate)
	require.Equal(t, "system", params.GeneratedBy)
	require.False(t, params.IncludePending)
}
