package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/config"
	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
	"github.com/bookclose/bookclose/internal/repository"
	"github.com/bookclose/bookclose/internal/service"
)

const dateLayout = "2006-01-02"

type seedAccount struct {
	code     string
	name     string
	accType  domain.AccountType
	category domain.Category
	system   bool
}

var chart = []seedAccount{
	{"1000", "Cash", domain.AccountTypeAsset, domain.CategoryCash, false},
	{"1100", "Accounts Receivable", domain.AccountTypeAsset, domain.CategoryReceivables, false},
	{"1200", "Inventory", domain.AccountTypeAsset, domain.CategoryInventory, false},
	{"1300", "Prepaid Insurance", domain.AccountTypeAsset, domain.CategoryPrepaidExpenses, false},
	{"1500", "Equipment", domain.AccountTypeAsset, domain.CategoryFixedAssets, false},
	{"1510", "Accumulated Depreciation - Equipment", domain.AccountTypeAsset, domain.CategoryAccumDepreciation, false},
	{"2000", "Accounts Payable", domain.AccountTypeLiability, domain.CategoryPayables, false},
	{"2100", "Accrued Liabilities", domain.AccountTypeLiability, domain.CategoryAccruedExpenses, false},
	{"2200", "Deferred Revenue", domain.AccountTypeLiability, domain.CategoryDeferredRevenue, false},
	{"2500", "Equipment Loan", domain.AccountTypeLiability, domain.CategoryLongTermDebt, false},
	{"3000", "Common Stock", domain.AccountTypeEquity, domain.CategoryContributedCapital, false},
	{"3100", "Retained Earnings", domain.AccountTypeEquity, domain.CategoryRetainedEarnings, true},
	{"3200", "Dividends", domain.AccountTypeEquity, domain.CategoryDividends, false},
	{"4000", "Sales Revenue", domain.AccountTypeRevenue, domain.CategorySales, false},
	{"4100", "Sales Returns and Allowances", domain.AccountTypeRevenue, domain.CategorySalesReturns, false},
	{"4200", "Interest Income", domain.AccountTypeRevenue, domain.CategoryOtherRevenue, false},
	{"5000", "Cost of Goods Sold", domain.AccountTypeExpense, domain.CategoryCOGS, false},
	{"5100", "Purchases", domain.AccountTypeExpense, domain.CategoryPurchases, false},
	{"6000", "Operating Expenses", domain.AccountTypeExpense, domain.CategoryOperatingExpenses, false},
	{"6100", "Payroll Expense", domain.AccountTypeExpense, domain.CategoryPayroll, false},
	{"6200", "Depreciation Expense", domain.AccountTypeExpense, domain.CategoryDepreciation, false},
	{"6900", "Income Tax Expense", domain.AccountTypeExpense, domain.CategoryIncomeTax, false},
}

type seedPosting struct {
	date        string
	description string
	reference   string
	debitCode   string
	creditCode  string
	amount      string
	status      domain.EntryStatus
}

var postings = []seedPosting{
	{"2025-06-01", "Owner investment", "SEED-001", "1000", "3000", "50000.00", ""},
	{"2025-06-03", "Inventory purchase on credit", "SEED-002", "1200", "2000", "18000.00", ""},
	{"2025-06-05", "Equipment purchase", "SEED-003", "1500", "1000", "12000.00", ""},
	{"2025-06-10", "Cash sales", "SEED-004", "1000", "4000", "26500.00", ""},
	{"2025-06-14", "Credit sales", "SEED-005", "1100", "4000", "9800.00", ""},
	{"2025-06-14", "Cost of goods sold", "SEED-006", "5000", "1200", "14200.00", ""},
	{"2025-06-15", "June payroll", "SEED-007", "6100", "1000", "6200.00", ""},
	{"2025-06-16", "Office rent", "SEED-008", "6000", "1000", "2400.00", ""},
	{"2025-06-20", "Supplier payment", "SEED-009", "2000", "1000", "9000.00", ""},
	{"2025-06-24", "Customer payment received", "SEED-010", "1000", "1100", "4200.00", ""},
	{"2025-06-25", "Sales return refund", "SEED-011", "4100", "1000", "650.00", ""},
	{"2025-06-28", "Utilities accrual estimate", "SEED-012", "6000", "2100", "380.00", domain.EntryStatusPending},
	{"2025-06-30", "June depreciation", "SEED-013", "6200", "1510", "200.00", ""},
	{"2025-06-30", "Dividend paid", "SEED-014", "3200", "1000", "1500.00", ""},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("bookclose-seeder", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     2,
		MaxIdleConns:     2,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	accounts := service.NewAccountService(accountRepo)
	ledger := service.NewLedgerService(repository.NewLedgerRepository(db), accountRepo)

	if err := seedChart(ctx, accounts); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			slog.Info("chart already seeded, nothing to do")
			return
		}
		slog.Error("seeding chart failed", "error", err)
		os.Exit(1)
	}

	if err := seedEntries(ctx, ledger); err != nil {
		slog.Error("seeding entries failed", "error", err)
		os.Exit(1)
	}

	slog.Info("seed complete", "accounts", len(chart), "entries", len(postings)*2)
}

func seedChart(ctx context.Context, accounts *service.AccountService) error {
	for _, a := range chart {
		allowPosting := !a.system
		_, err := accounts.CreateAccount(ctx, service.CreateAccountInput{
			Code:         a.code,
			Name:         a.name,
			Type:         a.accType,
			Category:     a.category,
			AllowPosting: &allowPosting,
			IsSystem:     a.system,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// seedEntries posts each seed row as a balanced debit/credit pair so the
// books reconcile from the first trial balance.
func seedEntries(ctx context.Context, ledger *service.LedgerService) error {
	for _, p := range postings {
		entryDate, err := time.ParseInLocation(dateLayout, p.date, time.UTC)
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(p.amount)
		if err != nil {
			return err
		}

		pair := []service.PostEntryInput{
			{
				AccountCode: p.debitCode,
				EntryDate:   entryDate,
				Description: p.description,
				Debit:       amount,
				Status:      p.status,
				Reference:   p.reference,
			},
			{
				AccountCode: p.creditCode,
				EntryDate:   entryDate,
				Description: p.description,
				Credit:      amount,
				Status:      p.status,
				Reference:   p.reference,
			},
		}

		if _, err := ledger.PostBatch(ctx, pair); err != nil {
			return err
		}
	}
	return nil
}
