package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
)

// SeedAccount inserts a chart-of-accounts row, deriving the normal balance
// from the type and category the way account creation does.
func SeedAccount(t *testing.T, db *sql.DB, code, name string, accType domain.AccountType, category domain.Category, opening decimal.Decimal) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:             uuid.New(),
		Code:           code,
		Name:           name,
		Type:           accType,
		Category:       category,
		NormalBalance:  domain.NormalBalanceFor(accType, category),
		OpeningBalance: opening,
		AllowPosting:   true,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, code, name, account_type, category, normal_balance, opening_balance, allow_posting, is_system, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Code, a.Name, a.Type, a.Category, a.NormalBalance, a.OpeningBalance, a.AllowPosting, a.IsSystem, a.Active, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", code, err)
	}
	return a
}

// SeedEntry inserts one completed ledger entry dated on the given day.
func SeedEntry(t *testing.T, db *sql.DB, code string, day time.Time, debit, credit decimal.Decimal) uuid.UUID {
	t.Helper()
	return SeedEntryStatus(t, db, code, day, debit, credit, domain.EntryStatusCompleted)
}

func SeedEntryStatus(t *testing.T, db *sql.DB, code string, day time.Time, debit, credit decimal.Decimal, status domain.EntryStatus) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO ledger_entries (id, account_code, entry_date, description, debit, credit, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, code, day, "test entry", debit, credit, status, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed entry for %s: %v", code, err)
	}
	return id
}

// SeedChart inserts a compact chart covering every statement section. All
// opening balances are zero so tests control positions through entries alone.
func SeedChart(t *testing.T, db *sql.DB) {
	t.Helper()

	accounts := []struct {
		code     string
		name     string
		accType  domain.AccountType
		category domain.Category
	}{
		{"1000", "Cash", domain.AccountTypeAsset, domain.CategoryCash},
		{"1100", "Accounts Receivable", domain.AccountTypeAsset, domain.CategoryReceivables},
		{"1200", "Inventory", domain.AccountTypeAsset, domain.CategoryInventory},
		{"1500", "Equipment", domain.AccountTypeAsset, domain.CategoryFixedAssets},
		{"1510", "Accumulated Depreciation", domain.AccountTypeAsset, domain.CategoryAccumDepreciation},
		{"2000", "Accounts Payable", domain.AccountTypeLiability, domain.CategoryPayables},
		{"2500", "Long-Term Debt", domain.AccountTypeLiability, domain.CategoryLongTermDebt},
		{"3000", "Common Stock", domain.AccountTypeEquity, domain.CategoryContributedCapital},
		{"3100", "Retained Earnings", domain.AccountTypeEquity, domain.CategoryRetainedEarnings},
		{"3200", "Dividends", domain.AccountTypeEquity, domain.CategoryDividends},
		{"4000", "Sales", domain.AccountTypeRevenue, domain.CategorySales},
		{"4100", "Sales Returns", domain.AccountTypeRevenue, domain.CategorySalesReturns},
		{"5000", "Cost of Goods Sold", domain.AccountTypeExpense, domain.CategoryCOGS},
		{"5200", "Purchases", domain.AccountTypeExpense, domain.CategoryPurchases},
		{"6000", "Operating Expenses", domain.AccountTypeExpense, domain.CategoryOperatingExpenses},
	}
	for _, a := range accounts {
		SeedAccount(t, db, a.code, a.name, a.accType, a.category, decimal.Zero)
	}
}

// CountStatements counts persisted rows for a statement number, all versions
// included.
func CountStatements(t *testing.T, db *sql.DB, number string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM statements WHERE statement_number = $1`, number).Scan(&count)
	if err != nil {
		t.Fatalf("count statements %s: %v", number, err)
	}
	return count
}
