package statement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	st, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return st, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Statement, error) {
	st, err := s.statements.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	return st, nil
}

func (s *Service) List(ctx context.Context, filter domain.StatementFilter) ([]domain.Statement, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	stmts, total, err := s.statements.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return stmts, total, nil
}

// Versions returns every version of a statement, oldest first.
func (s *Service) Versions(ctx context.Context, number string) ([]domain.Statement, error) {
	versions, err := s.statements.ListVersions(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("Versions: %w", err)
	}
	return versions, nil
}

// Transition moves a statement one step along its lifecycle and persists the
// result. Invalid moves and moves off a terminal status are rejected.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to domain.StatementStatus, actor, details string) (*domain.Statement, error) {
	log := logging.FromContext(ctx)

	st, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Transition: %w", err)
	}
	from := st.Status
	if err := st.Transition(to, actor, details); err != nil {
		return nil, fmt.Errorf("Transition: %w", err)
	}
	if err := s.statements.Update(ctx, st); err != nil {
		return nil, fmt.Errorf("Transition: %w", err)
	}

	log.Info("statement status changed",
		"statement_number", st.StatementNumber,
		"from", from,
		"to", st.Status,
		"actor", actor,
	)
	return st, nil
}

// Delete removes a statement and its version history. Only the current draft
// may be deleted; anything further along is a conflict.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	log := logging.FromContext(ctx)

	st, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if !st.IsCurrent {
		return fmt.Errorf("Delete: %w", domain.ErrStatementNotFound)
	}
	if st.Status != domain.StatusDraft {
		return fmt.Errorf("Delete: %w", domain.ErrNotDraft)
	}
	if err := s.statements.DeleteByNumber(ctx, st.StatementNumber); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	log.Info("statement deleted", "statement_number", st.StatementNumber, "versions", st.Version)
	return nil
}

// Regenerate rebuilds a statement from the ledger as a new version. The
// current version is retired, never mutated, so published figures stay
// reconstructable. The new version starts over in draft and records the
// tracked-field diffs against its predecessor.
func (s *Service) Regenerate(ctx context.Context, id uuid.UUID, params Params) (*domain.Statement, error) {
	log := logging.FromContext(ctx)

	cur, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Regenerate: %w", err)
	}
	if !cur.IsCurrent {
		return nil, fmt.Errorf("Regenerate: %w", domain.ErrStatementNotFound)
	}

	period := domain.Period{Type: cur.PeriodType, Key: cur.PeriodKey, Start: cur.PeriodStart, End: cur.PeriodEnd}
	params = params.withDefaults(s.config, period)

	now := time.Now().UTC()
	next := &domain.Statement{
		ID:              uuid.New(),
		StatementNumber: cur.StatementNumber,
		Type:            cur.Type,
		StatementDate:   params.StatementDate,
		PeriodType:      cur.PeriodType,
		PeriodKey:       cur.PeriodKey,
		PeriodStart:     cur.PeriodStart,
		PeriodEnd:       cur.PeriodEnd,
		Title:           cur.Title,
		Status:          domain.StatusDraft,
		Version:         cur.Version + 1,
		IsCurrent:       true,
		GeneratedBy:     params.GeneratedBy,
		GeneratedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	prevID := cur.ID
	next.PreviousVersionID = &prevID

	switch cur.Type {
	case domain.StatementBalanceSheet:
		doc, ratios, meta, err := s.buildBalanceSheet(ctx, period, params)
		if err != nil {
			return nil, fmt.Errorf("Regenerate: %w", err)
		}
		next.BalanceSheet, next.Ratios, next.Metadata = doc, ratios, meta
	case domain.StatementProfitLoss:
		doc, meta, err := s.buildProfitLoss(ctx, period, params)
		if err != nil {
			return nil, fmt.Errorf("Regenerate: %w", err)
		}
		next.ProfitLoss, next.Metadata = doc, meta
	default:
		return nil, fmt.Errorf("Regenerate: unknown statement type %q", cur.Type)
	}

	next.AuditTrail = append(next.AuditTrail, cur.AuditTrail...)
	next.RecordAudit(domain.AuditRegenerated, params.GeneratedBy, fmt.Sprintf("regenerated as version %d", next.Version))

	next.VersionHistory = append(next.VersionHistory, cur.VersionHistory...)
	next.VersionHistory = append(next.VersionHistory, domain.VersionChange{
		Version:   next.Version,
		ChangedBy: params.GeneratedBy,
		ChangedAt: now,
		Changes:   diffTracked(cur, next),
	})

	if err := s.statements.CreateVersion(ctx, cur.ID, next); err != nil {
		return nil, fmt.Errorf("Regenerate: %w", err)
	}

	log.Info("statement regenerated",
		"statement_number", next.StatementNumber,
		"version", next.Version,
		"changes", len(next.VersionHistory[len(next.VersionHistory)-1].Changes),
	)
	return next, nil
}

// trackedValues flattens the fields whose history the version log keeps.
// Amounts render with two decimals so diffs compare stably across versions.
func trackedValues(s *domain.Statement) map[string]string {
	vals := map[string]string{
		"status": string(s.Status),
		"title":  s.Title,
	}
	if s.BalanceSheet != nil {
		vals["total_assets"] = s.BalanceSheet.Assets.Total.StringFixed(2)
		vals["total_liabilities"] = s.BalanceSheet.Liabilities.Total.StringFixed(2)
		vals["total_equity"] = s.BalanceSheet.Equity.Total.StringFixed(2)
		vals["difference"] = s.BalanceSheet.Difference.StringFixed(2)
	}
	if s.ProfitLoss != nil {
		vals["total_revenue"] = s.ProfitLoss.TotalRevenue.StringFixed(2)
		vals["gross_profit"] = s.ProfitLoss.GrossProfit.StringFixed(2)
		vals["operating_income"] = s.ProfitLoss.OperatingIncome.StringFixed(2)
		vals["net_income"] = s.ProfitLoss.NetIncome.StringFixed(2)
	}
	return vals
}

// diffTracked compares the tracked fields of two versions, ordered by field
// name so the same edit always produces the same diff.
func diffTracked(old, next *domain.Statement) []domain.FieldChange {
	oldVals, nextVals := trackedValues(old), trackedValues(next)

	fields := make([]string, 0, len(nextVals))
	for f := range nextVals {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var changes []domain.FieldChange
	for _, f := range fields {
		if oldVals[f] != nextVals[f] {
			changes = append(changes, domain.FieldChange{Field: f, OldValue: oldVals[f], NewValue: nextVals[f]})
		}
	}
	return changes
}
