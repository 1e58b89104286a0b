package statement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bookclose/bookclose/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func TestComputeRatios(t *testing.T) {
	tests := []struct {
		name string
		in   ratioInputs
		want map[string]string
	}{
		{
			name: "liquidity ratios",
			in: ratioInputs{
				currentAssets:      dec("200"),
				currentLiabilities: dec("100"),
				inventory:          dec("50"),
			},
			want: map[string]string{
				"current_ratio": "2",
				"quick_ratio":   "1.5",
			},
		},
		{
			name: "profitability and leverage",
			in: ratioInputs{
				totalAssets:      dec("300"),
				totalLiabilities: dec("120"),
				totalEquity:      dec("180"),
				netIncome:        dec("10"),
			},
			want: map[string]string{
				"debt_to_equity":   "0.6667",
				"return_on_assets": "0.0333",
				"return_on_equity": "0.0556",
			},
		},
		{
			name: "turnover uses averaged period edges",
			in: ratioInputs{
				costOfGoodsSold:     dec("100"),
				netSales:            dec("240"),
				inventory:           dec("30"),
				beginningInventory:  dec("20"),
				receivables:         dec("50"),
				beginningReceivable: dec("70"),
				payables:            dec("40"),
				beginningPayable:    dec("10"),
			},
			want: map[string]string{
				"inventory_turnover":   "4",
				"receivables_turnover": "4",
				"payables_turnover":    "4",
			},
		},
		{
			name: "zero denominators yield zero ratios",
			in:   ratioInputs{netIncome: dec("10"), currentAssets: dec("5")},
			want: map[string]string{
				"current_ratio":        "0",
				"quick_ratio":          "0",
				"debt_to_equity":       "0",
				"return_on_assets":     "0",
				"return_on_equity":     "0",
				"inventory_turnover":   "0",
				"receivables_turnover": "0",
				"payables_turnover":    "0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeRatios(tt.in)
			require.Len(t, got, 8)
			for ratio, want := range tt.want {
				requireDecimal(t, want, got[ratio])
			}
		})
	}
}

func TestSectionCategoryTotalNetsContraLines(t *testing.T) {
	sec := domain.Section{
		Lines: []domain.LineItem{
			{Label: "Cash and Cash Equivalents", Category: domain.CategoryCash, Amount: dec("100")},
			{Label: "Accounts Receivable", Category: domain.CategoryReceivables, Amount: dec("80")},
			{Label: "Allowance for Doubtful Accounts", Category: domain.CategoryReceivables, Amount: dec("-2.40")},
		},
	}

	requireDecimal(t, "77.60", sectionCategoryTotal(sec, domain.CategoryReceivables))
	requireDecimal(t, "100", sectionCategoryTotal(sec, domain.CategoryCash))
	requireDecimal(t, "0", sectionCategoryTotal(sec, domain.CategoryInventory))
}
