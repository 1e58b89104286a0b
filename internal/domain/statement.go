package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StatementType string

const (
	StatementBalanceSheet StatementType = "balance_sheet"
	StatementProfitLoss   StatementType = "profit_loss"
)

func (t StatementType) IsValid() bool {
	return t == StatementBalanceSheet || t == StatementProfitLoss
}

// NumberPrefix is the statement-number prefix for the type, e.g.
// BS-2025-01-001 for a monthly balance sheet.
func (t StatementType) NumberPrefix() string {
	if t == StatementBalanceSheet {
		return "BS"
	}
	return "PL"
}

type StatementStatus string

const (
	StatusDraft     StatementStatus = "draft"
	StatusReview    StatementStatus = "review"
	StatusApproved  StatementStatus = "approved"
	StatusPublished StatementStatus = "published"
	StatusFinal     StatementStatus = "final"
)

func (s StatementStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusApproved, StatusPublished, StatusFinal:
		return true
	}
	return false
}

// TerminalStatus is the end of the lifecycle: profit and loss statements are
// published, balance sheets become final.
func (t StatementType) TerminalStatus() StatementStatus {
	if t == StatementBalanceSheet {
		return StatusFinal
	}
	return StatusPublished
}

// AccountLine records one account's contribution to a line item.
type AccountLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// LineItem is one row of a statement section. When a sub-calculation fails
// the amount is zeroed and HasError is set; assembly always continues.
type LineItem struct {
	Label    string          `json:"label"`
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Accounts []AccountLine   `json:"accounts,omitempty"`
	HasError bool            `json:"has_error,omitempty"`
}

type Section struct {
	Lines []LineItem      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// SectionGroup splits a side of the balance sheet into current and
// non-current portions.
type SectionGroup struct {
	Current    Section         `json:"current"`
	NonCurrent Section         `json:"non_current"`
	Total      decimal.Decimal `json:"total"`
}

type BalanceSheetDoc struct {
	Assets                    SectionGroup    `json:"assets"`
	Liabilities               SectionGroup    `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	CurrentPeriodEarnings     decimal.Decimal `json:"current_period_earnings"`
	Balanced                  bool            `json:"balanced"`
	Difference                decimal.Decimal `json:"difference"`
}

type Margins struct {
	Gross     decimal.Decimal `json:"gross"`
	Operating decimal.Decimal `json:"operating"`
	Net       decimal.Decimal `json:"net"`
	HasError  bool            `json:"has_error,omitempty"`
}

const (
	COGSMethodDirect  = "direct"
	COGSMethodFormula = "inventory_formula"
)

type ProfitLossDoc struct {
	Revenue           Section         `json:"revenue"`
	NetSales          decimal.Decimal `json:"net_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	CostOfGoodsSold   Section         `json:"cost_of_goods_sold"`
	COGSMethod        string          `json:"cogs_method"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses Section         `json:"operating_expenses"`
	OperatingIncome   decimal.Decimal `json:"operating_income"`
	OtherExpenses     Section         `json:"other_expenses"`
	EarningsBeforeTax decimal.Decimal `json:"earnings_before_tax"`
	IncomeTax         LineItem        `json:"income_tax"`
	NetIncome         decimal.Decimal `json:"net_income"`
	Margins           Margins         `json:"margins"`
}

// StatementMetadata records how a statement was generated, plus any warnings
// absorbed along the way. An out-of-tolerance identity check sets
// HasImbalance instead of failing generation.
type StatementMetadata struct {
	Tolerance           decimal.Decimal `json:"tolerance"`
	IncludePending      bool            `json:"include_pending"`
	AllowanceRate       decimal.Decimal `json:"allowance_rate"`
	HasImbalance        bool            `json:"has_imbalance"`
	ImbalanceDifference decimal.Decimal `json:"imbalance_difference"`
	AccountCount        int             `json:"account_count"`
	Warnings            []string        `json:"warnings,omitempty"`
}

type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type AuditEntry struct {
	Action      string        `json:"action"`
	PerformedBy string        `json:"performed_by"`
	PerformedAt time.Time     `json:"performed_at"`
	Details     string        `json:"details,omitempty"`
	Changes     []FieldChange `json:"changes,omitempty"`
}

// VersionChange is one version bump: the field-level diffs against the
// previous version. Replaying all changes over version 1 reconstructs the
// tracked fields of the current version.
type VersionChange struct {
	Version   int           `json:"version"`
	ChangedBy string        `json:"changed_by"`
	ChangedAt time.Time     `json:"changed_at"`
	Changes   []FieldChange `json:"changes"`
}

const (
	AuditCreated       = "created"
	AuditStatusChanged = "status_changed"
	AuditRegenerated   = "regenerated"
)

// StatementFilter narrows statement listings; zero values mean no filtering.
// Listings only ever return current versions.
type StatementFilter struct {
	Type       StatementType
	Status     StatementStatus
	PeriodType PeriodType
	Limit      int
	Offset     int
}

type Statement struct {
	ID              uuid.UUID
	StatementNumber string
	Type            StatementType
	StatementDate   time.Time
	PeriodType      PeriodType
	PeriodKey       string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Title           string
	Status          StatementStatus
	Version         int
	IsCurrent       bool
	GeneratedBy     string
	GeneratedAt     time.Time
	ApprovedBy      *string
	ApprovedAt      *time.Time
	PublishedAt     *time.Time

	BalanceSheet *BalanceSheetDoc
	ProfitLoss   *ProfitLossDoc
	Ratios       map[string]decimal.Decimal

	Metadata       StatementMetadata
	AuditTrail     []AuditEntry
	VersionHistory []VersionChange

	PreviousVersionID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsTerminal reports whether the statement has reached its immutable end
// state.
func (s *Statement) IsTerminal() bool {
	return s.Status == StatusPublished || s.Status == StatusFinal
}

// RecordAudit appends to the append-only action log.
func (s *Statement) RecordAudit(action, actor, details string, changes ...FieldChange) {
	s.AuditTrail = append(s.AuditTrail, AuditEntry{
		Action:      action,
		PerformedBy: actor,
		PerformedAt: time.Now().UTC(),
		Details:     details,
		Changes:     changes,
	})
}

// Transition advances the statement along draft, review, approved and then
// the type's terminal status. Any other move is rejected. Approval stamps
// ApprovedBy and ApprovedAt, reaching the terminal status stamps PublishedAt;
// every transition appends an audit entry.
func (s *Statement) Transition(to StatementStatus, actor, details string) error {
	if s.IsTerminal() {
		return fmt.Errorf("%w: statement is %s", ErrPublishedImmutable, s.Status)
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	var next StatementStatus
	switch s.Status {
	case StatusDraft:
		next = StatusReview
	case StatusReview:
		next = StatusApproved
	case StatusApproved:
		next = s.Type.TerminalStatus()
	}
	if to != next {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.Status, to)
	}
	from := s.Status
	now := time.Now().UTC()
	if to == StatusApproved {
		s.ApprovedBy = &actor
		s.ApprovedAt = &now
	}
	if to == s.Type.TerminalStatus() {
		s.PublishedAt = &now
	}
	s.Status = to
	s.RecordAudit(AuditStatusChanged, actor, details, FieldChange{
		Field:    "status",
		OldValue: string(from),
		NewValue: string(to),
	})
	return nil
}
