package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bookclose/bookclose/internal/domain"
)

const ledgerColumns = `id, account_code, entry_date, description, debit, credit,
	status, reference, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, account_code, entry_date, description, debit, credit,
			status, reference, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.AccountCode, entry.EntryDate, entry.Description,
		entry.Debit, entry.Credit, entry.Status, entry.Reference, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

// InsertBatch writes a set of entries atomically; either all post or none do.
func (r *LedgerRepository) InsertBatch(ctx context.Context, entries []domain.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("InsertBatch: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger_entries (
			id, account_code, entry_date, description, debit, credit,
			status, reference, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	)
	if err != nil {
		return fmt.Errorf("InsertBatch: prepare: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.AccountCode, e.EntryDate, e.Description, e.Debit, e.Credit,
			e.Status, e.Reference, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("InsertBatch: exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("InsertBatch: commit: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`, id,
	)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return e, nil
}

func (r *LedgerRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.EntryStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("SetStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, code string, limit, offset int) ([]domain.LedgerEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE account_code = $1`, code,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_code = $1 ORDER BY entry_date DESC, created_at DESC LIMIT $2 OFFSET $3`,
		code, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return entries, total, nil
}

// SumByAccount aggregates entry totals per account code in one grouped query
// instead of fanning out per account. A zero from means no lower bound, so
// as-of balances replay the whole ledger up to the cutoff. Voided entries are
// never counted; pending ones only when asked for.
func (r *LedgerRepository) SumByAccount(ctx context.Context, from, to time.Time, includePending bool, codes []string) (map[string]domain.DebitCredit, error) {
	statuses := []string{string(domain.EntryStatusCompleted)}
	if includePending {
		statuses = append(statuses, string(domain.EntryStatusPending))
	}

	query := `SELECT account_code, COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0)
		FROM ledger_entries
		WHERE status = ANY($1) AND entry_date <= $2`
	args := []any{pq.Array(statuses), to}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if len(codes) > 0 {
		args = append(args, pq.Array(codes))
		query += fmt.Sprintf(" AND account_code = ANY($%d)", len(args))
	}
	query += " GROUP BY account_code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SumByAccount: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]domain.DebitCredit)
	for rows.Next() {
		var code string
		var s domain.DebitCredit
		if err := rows.Scan(&code, &s.Debit, &s.Credit); err != nil {
			return nil, fmt.Errorf("SumByAccount: scan: %w", err)
		}
		sums[code] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SumByAccount: rows: %w", err)
	}
	return sums, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(
		&e.ID, &e.AccountCode, &e.EntryDate, &e.Description,
		&e.Debit, &e.Credit, &e.Status, &e.Reference, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
