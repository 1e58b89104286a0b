package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookclose/bookclose/internal/domain"
)

const statementColumns = `id, statement_number, statement_type, statement_date,
	period_type, period_key, period_start, period_end, title, status, version,
	is_current, generated_by, generated_at, approved_by, approved_at, published_at,
	balance_sheet, profit_loss, ratios, metadata, audit_trail, version_history,
	previous_version_id, created_at, updated_at`

type StatementRepository struct {
	db *sql.DB
}

func NewStatementRepository(db *sql.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

// Create inserts the first version of a statement. The partial unique index
// on current statements per (type, period) turns a concurrent duplicate into
// ErrStatementExists, so exactly one generation wins a race.
func (r *StatementRepository) Create(ctx context.Context, s *domain.Statement) error {
	docs, err := marshalStatementDocs(s)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO statements (
			id, statement_number, statement_type, statement_date,
			period_type, period_key, period_start, period_end, title, status, version,
			is_current, generated_by, generated_at, approved_by, approved_at, published_at,
			balance_sheet, profit_loss, ratios, metadata, audit_trail, version_history,
			previous_version_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23,
			$24, $25, $26
		)`,
		s.ID, s.StatementNumber, s.Type, s.StatementDate,
		s.PeriodType, s.PeriodKey, s.PeriodStart, s.PeriodEnd, s.Title, s.Status, s.Version,
		s.IsCurrent, s.GeneratedBy, s.GeneratedAt, s.ApprovedBy, s.ApprovedAt, s.PublishedAt,
		docs.balanceSheet, docs.profitLoss, docs.ratios, docs.metadata, docs.auditTrail, docs.versionHistory,
		s.PreviousVersionID, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("Create: %w", domain.ErrStatementExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *StatementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Statement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM statements WHERE id = $1`, id,
	)
	s, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrStatementNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return s, nil
}

// GetCurrent fetches the current version of the statement covering a period.
func (r *StatementRepository) GetCurrent(ctx context.Context, st domain.StatementType, pt domain.PeriodType, periodKey string) (*domain.Statement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM statements
		WHERE statement_type = $1 AND period_type = $2 AND period_key = $3 AND is_current`,
		st, pt, periodKey,
	)
	s, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetCurrent: %w", domain.ErrStatementNotFound)
		}
		return nil, fmt.Errorf("GetCurrent: %w", err)
	}
	return s, nil
}

func (r *StatementRepository) GetByNumber(ctx context.Context, number string) (*domain.Statement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM statements
		WHERE statement_number = $1 AND is_current`, number,
	)
	s, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByNumber: %w", domain.ErrStatementNotFound)
		}
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	return s, nil
}

// ListVersions returns every version of a statement number, oldest first.
func (r *StatementRepository) ListVersions(ctx context.Context, number string) ([]domain.Statement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+statementColumns+` FROM statements
		WHERE statement_number = $1 ORDER BY version`, number,
	)
	if err != nil {
		return nil, fmt.Errorf("ListVersions: %w", err)
	}
	defer rows.Close()

	statements, err := collectStatements(rows)
	if err != nil {
		return nil, fmt.Errorf("ListVersions: %w", err)
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("ListVersions: %w", domain.ErrStatementNotFound)
	}
	return statements, nil
}

func (r *StatementRepository) List(ctx context.Context, filter domain.StatementFilter) ([]domain.Statement, int, error) {
	where := ` WHERE is_current`
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND statement_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.PeriodType != "" {
		args = append(args, filter.PeriodType)
		where += fmt.Sprintf(" AND period_type = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statements`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	query := `SELECT ` + statementColumns + ` FROM statements` + where + ` ORDER BY period_start DESC, statement_number`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	statements, err := collectStatements(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return statements, total, nil
}

// Update rewrites the mutable fields of an existing row: status moves, audit
// appends and metadata warnings. Identity and period columns never change.
func (r *StatementRepository) Update(ctx context.Context, s *domain.Statement) error {
	docs, err := marshalStatementDocs(s)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE statements SET
			status = $1, title = $2, approved_by = $3, approved_at = $4, published_at = $5,
			balance_sheet = $6, profit_loss = $7, ratios = $8, metadata = $9,
			audit_trail = $10, version_history = $11, updated_at = now()
		WHERE id = $12`,
		s.Status, s.Title, s.ApprovedBy, s.ApprovedAt, s.PublishedAt,
		docs.balanceSheet, docs.profitLoss, docs.ratios, docs.metadata,
		docs.auditTrail, docs.versionHistory, s.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrStatementNotFound)
	}
	return nil
}

// CreateVersion atomically retires the current version and inserts its
// successor, keeping exactly one current row per statement number.
func (r *StatementRepository) CreateVersion(ctx context.Context, previousID uuid.UUID, next *domain.Statement) error {
	docs, err := marshalStatementDocs(next)
	if err != nil {
		return fmt.Errorf("CreateVersion: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateVersion: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE statements SET is_current = false, updated_at = now()
		WHERE id = $1 AND is_current`, previousID,
	)
	if err != nil {
		return fmt.Errorf("CreateVersion: retire: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("CreateVersion: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("CreateVersion: %w", domain.ErrStatementNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO statements (
			id, statement_number, statement_type, statement_date,
			period_type, period_key, period_start, period_end, title, status, version,
			is_current, generated_by, generated_at, approved_by, approved_at, published_at,
			balance_sheet, profit_loss, ratios, metadata, audit_trail, version_history,
			previous_version_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23,
			$24, $25, $26
		)`,
		next.ID, next.StatementNumber, next.Type, next.StatementDate,
		next.PeriodType, next.PeriodKey, next.PeriodStart, next.PeriodEnd, next.Title, next.Status, next.Version,
		next.IsCurrent, next.GeneratedBy, next.GeneratedAt, next.ApprovedBy, next.ApprovedAt, next.PublishedAt,
		docs.balanceSheet, docs.profitLoss, docs.ratios, docs.metadata, docs.auditTrail, docs.versionHistory,
		next.PreviousVersionID, next.CreatedAt, next.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("CreateVersion: %w", domain.ErrStatementExists)
		}
		return fmt.Errorf("CreateVersion: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateVersion: commit: %w", err)
	}
	return nil
}

// DeleteByNumber removes a statement and all of its versions.
func (r *StatementRepository) DeleteByNumber(ctx context.Context, number string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM statements WHERE statement_number = $1`, number)
	if err != nil {
		return fmt.Errorf("DeleteByNumber: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteByNumber: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("DeleteByNumber: %w", domain.ErrStatementNotFound)
	}
	return nil
}

// NextSequence returns the next statement-number suffix for a type and
// period. Numbers end in a zero-padded three digit sequence.
func (r *StatementRepository) NextSequence(ctx context.Context, st domain.StatementType, periodKey string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(right(statement_number, 3)::int), 0) + 1
		FROM statements WHERE statement_type = $1 AND period_key = $2`,
		st, periodKey,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("NextSequence: %w", err)
	}
	return next, nil
}

type statementDocs struct {
	balanceSheet   []byte
	profitLoss     []byte
	ratios         []byte
	metadata       []byte
	auditTrail     []byte
	versionHistory []byte
}

func marshalStatementDocs(s *domain.Statement) (statementDocs, error) {
	var docs statementDocs
	var err error

	if s.BalanceSheet != nil {
		if docs.balanceSheet, err = json.Marshal(s.BalanceSheet); err != nil {
			return docs, fmt.Errorf("marshal balance sheet: %w", err)
		}
	}
	if s.ProfitLoss != nil {
		if docs.profitLoss, err = json.Marshal(s.ProfitLoss); err != nil {
			return docs, fmt.Errorf("marshal profit and loss: %w", err)
		}
	}
	if s.Ratios != nil {
		if docs.ratios, err = json.Marshal(s.Ratios); err != nil {
			return docs, fmt.Errorf("marshal ratios: %w", err)
		}
	}
	if docs.metadata, err = json.Marshal(s.Metadata); err != nil {
		return docs, fmt.Errorf("marshal metadata: %w", err)
	}
	if docs.auditTrail, err = json.Marshal(s.AuditTrail); err != nil {
		return docs, fmt.Errorf("marshal audit trail: %w", err)
	}
	if docs.versionHistory, err = json.Marshal(s.VersionHistory); err != nil {
		return docs, fmt.Errorf("marshal version history: %w", err)
	}
	return docs, nil
}

func scanStatement(sc scanner) (*domain.Statement, error) {
	var s domain.Statement
	var previousVersionID uuid.NullUUID
	var balanceSheet, profitLoss, ratios, metadata, auditTrail, versionHistory []byte

	err := sc.Scan(
		&s.ID, &s.StatementNumber, &s.Type, &s.StatementDate,
		&s.PeriodType, &s.PeriodKey, &s.PeriodStart, &s.PeriodEnd, &s.Title, &s.Status, &s.Version,
		&s.IsCurrent, &s.GeneratedBy, &s.GeneratedAt, &s.ApprovedBy, &s.ApprovedAt, &s.PublishedAt,
		&balanceSheet, &profitLoss, &ratios, &metadata, &auditTrail, &versionHistory,
		&previousVersionID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if previousVersionID.Valid {
		s.PreviousVersionID = &previousVersionID.UUID
	}
	if balanceSheet != nil {
		s.BalanceSheet = &domain.BalanceSheetDoc{}
		if err := json.Unmarshal(balanceSheet, s.BalanceSheet); err != nil {
			return nil, fmt.Errorf("unmarshal balance sheet: %w", err)
		}
	}
	if profitLoss != nil {
		s.ProfitLoss = &domain.ProfitLossDoc{}
		if err := json.Unmarshal(profitLoss, s.ProfitLoss); err != nil {
			return nil, fmt.Errorf("unmarshal profit and loss: %w", err)
		}
	}
	if ratios != nil {
		if err := json.Unmarshal(ratios, &s.Ratios); err != nil {
			return nil, fmt.Errorf("unmarshal ratios: %w", err)
		}
	}
	if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if err := json.Unmarshal(auditTrail, &s.AuditTrail); err != nil {
		return nil, fmt.Errorf("unmarshal audit trail: %w", err)
	}
	if err := json.Unmarshal(versionHistory, &s.VersionHistory); err != nil {
		return nil, fmt.Errorf("unmarshal version history: %w", err)
	}
	return &s, nil
}

func collectStatements(rows *sql.Rows) ([]domain.Statement, error) {
	var statements []domain.Statement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		statements = append(statements, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return statements, nil
}
