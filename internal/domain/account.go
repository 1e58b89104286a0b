package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

var AllAccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account's balance increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// Signed folds a debit/credit pair into a single amount under the account's
// sign convention: debit-normal accounts grow with debits, credit-normal
// accounts grow with credits.
func (nb NormalBalance) Signed(debit, credit decimal.Decimal) decimal.Decimal {
	if nb == NormalDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Category is the sub-classification that routes an account into exactly one
// statement line item. The mapping is declarative: an account's category must
// belong to its type, checked at creation, so statement assembly is a pure
// lookup with no name inference.
type Category string

const (
	// asset
	CategoryCash              Category = "cash"
	CategoryReceivables       Category = "accounts_receivable"
	CategoryInventory         Category = "inventory"
	CategoryPrepaidExpenses   Category = "prepaid_expenses"
	CategoryFixedAssets       Category = "fixed_assets"
	CategoryAccumDepreciation Category = "accumulated_depreciation"
	CategoryIntangibles       Category = "intangible_assets"
	CategoryInvestments       Category = "investments"
	CategoryOtherAssets       Category = "other_assets"

	// liability
	CategoryPayables         Category = "accounts_payable"
	CategoryAccruedExpenses  Category = "accrued_expenses"
	CategoryShortTermDebt    Category = "short_term_debt"
	CategoryDeferredRevenue  Category = "deferred_revenue"
	CategoryLongTermDebt     Category = "long_term_debt"
	CategoryDeferredTax      Category = "deferred_tax"
	CategoryPension          Category = "pension_obligations"
	CategoryOtherLiabilities Category = "other_liabilities"

	// equity
	CategoryContributedCapital Category = "contributed_capital"
	CategoryRetainedEarnings   Category = "retained_earnings"
	CategoryDividends          Category = "dividends"
	CategoryOtherEquity        Category = "other_equity"

	// revenue
	CategorySales          Category = "sales"
	CategorySalesReturns   Category = "sales_returns"
	CategorySalesDiscounts Category = "sales_discounts"
	CategoryOtherRevenue   Category = "other_revenue"

	// expense
	CategoryCOGS              Category = "cost_of_goods_sold"
	CategoryPurchases         Category = "purchases"
	CategoryFreightIn         Category = "freight_in"
	CategoryPurchaseReturns   Category = "purchase_returns"
	CategoryPurchaseDiscounts Category = "purchase_discounts"
	CategoryOperatingExpenses Category = "operating_expenses"
	CategoryPayroll           Category = "payroll"
	CategoryDepreciation      Category = "depreciation_expense"
	CategoryOtherExpenses     Category = "other_expenses"
	CategoryIncomeTax         Category = "income_tax"
)

var categoriesByType = map[AccountType][]Category{
	AccountTypeAsset: {
		CategoryCash, CategoryReceivables, CategoryInventory, CategoryPrepaidExpenses,
		CategoryFixedAssets, CategoryAccumDepreciation, CategoryIntangibles,
		CategoryInvestments, CategoryOtherAssets,
	},
	AccountTypeLiability: {
		CategoryPayables, CategoryAccruedExpenses, CategoryShortTermDebt,
		CategoryDeferredRevenue, CategoryLongTermDebt, CategoryDeferredTax,
		CategoryPension, CategoryOtherLiabilities,
	},
	AccountTypeEquity: {
		CategoryContributedCapital, CategoryRetainedEarnings, CategoryDividends,
		CategoryOtherEquity,
	},
	AccountTypeRevenue: {
		CategorySales, CategorySalesReturns, CategorySalesDiscounts, CategoryOtherRevenue,
	},
	AccountTypeExpense: {
		CategoryCOGS, CategoryPurchases, CategoryFreightIn, CategoryPurchaseReturns,
		CategoryPurchaseDiscounts, CategoryOperatingExpenses, CategoryPayroll,
		CategoryDepreciation, CategoryOtherExpenses, CategoryIncomeTax,
	},
}

// Contra categories carry the opposite normal balance of their type
// (e.g. accumulated depreciation is a credit-normal asset).
var contraCategories = map[Category]bool{
	CategoryAccumDepreciation: true,
	CategoryDividends:         true,
	CategorySalesReturns:      true,
	CategorySalesDiscounts:    true,
	CategoryPurchaseReturns:   true,
	CategoryPurchaseDiscounts: true,
}

// CategoriesFor returns the declarative category set for a type.
func CategoriesFor(t AccountType) []Category {
	return categoriesByType[t]
}

// BelongsTo reports whether the category is valid for the given type.
func (c Category) BelongsTo(t AccountType) bool {
	for _, cat := range categoriesByType[t] {
		if cat == c {
			return true
		}
	}
	return false
}

// DefaultCategory is the catch-all line for a type; accounts whose category
// matched nothing during assembly are routed here.
func DefaultCategory(t AccountType) Category {
	switch t {
	case AccountTypeAsset:
		return CategoryOtherAssets
	case AccountTypeLiability:
		return CategoryOtherLiabilities
	case AccountTypeEquity:
		return CategoryOtherEquity
	case AccountTypeRevenue:
		return CategoryOtherRevenue
	default:
		return CategoryOtherExpenses
	}
}

// NormalBalanceFor derives the conventional normal balance for a type/category
// pair: debit for assets and expenses, credit otherwise, flipped for contra
// categories.
func NormalBalanceFor(t AccountType, c Category) NormalBalance {
	nb := NormalCredit
	if t == AccountTypeAsset || t == AccountTypeExpense {
		nb = NormalDebit
	}
	if contraCategories[c] {
		if nb == NormalDebit {
			return NormalCredit
		}
		return NormalDebit
	}
	return nb
}

// AccountFilter narrows account listings; zero values mean no filtering.
type AccountFilter struct {
	Type       AccountType
	ActiveOnly bool
}

type Account struct {
	ID             uuid.UUID
	Code           string
	Name           string
	Type           AccountType
	Category       Category
	NormalBalance  NormalBalance
	OpeningBalance decimal.Decimal
	ParentCode     *string
	IsSystem       bool
	AllowPosting   bool
	Active         bool
	CreatedAt      time.Time
}

// Validate checks the chart-of-accounts invariants. NormalBalance is fixed at
// creation; it must match the convention for the type/category pair so that
// balance math stays consistent with statement routing.
func (a *Account) Validate() error {
	if a.Code == "" {
		return fmt.Errorf("code: %w", ErrMissingField)
	}
	if a.Name == "" {
		return fmt.Errorf("name: %w", ErrMissingField)
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, a.Type)
	}
	if !a.Category.BelongsTo(a.Type) {
		return fmt.Errorf("%w: %q is not a %s category", ErrInvalidCategory, a.Category, a.Type)
	}
	if a.NormalBalance != NormalDebit && a.NormalBalance != NormalCredit {
		return fmt.Errorf("normal balance: %w", ErrMissingField)
	}
	if want := NormalBalanceFor(a.Type, a.Category); a.NormalBalance != want {
		return fmt.Errorf("%w: %s/%s accounts are %s-normal", ErrInvalidCategory, a.Type, a.Category, want)
	}
	if a.ParentCode != nil && *a.ParentCode == a.Code {
		return fmt.Errorf("%w: account cannot be its own parent", ErrInvalidParent)
	}
	return nil
}
