package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bookclose/bookclose/internal/domain"
)

const accountColumns = `id, code, name, account_type, category, normal_balance,
	opening_balance, parent_code, is_system, allow_posting, active, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, code, name, account_type, category, normal_balance,
			opening_balance, parent_code, is_system, allow_posting, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID, account.Code, account.Name, account.Type, account.Category,
		account.NormalBalance, account.OpeningBalance, account.ParentCode,
		account.IsSystem, account.AllowPosting, account.Active, account.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("Create: %w", domain.ErrAccountExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCode: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetByCode: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND account_type = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += " AND active"
	}
	query += " ORDER BY code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return accounts, nil
}

// ListActive is the chart as the statement assemblers see it.
func (r *AccountRepository) ListActive(ctx context.Context) ([]domain.Account, error) {
	return r.List(ctx, domain.AccountFilter{ActiveOnly: true})
}

// Update rewrites the mutable fields. Code, type and the creation timestamp
// never change once an account exists; posted history depends on them.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET
			name = $1, category = $2, normal_balance = $3, parent_code = $4,
			allow_posting = $5, active = $6
		WHERE code = $7`,
		account.Name, account.Category, account.NormalBalance, account.ParentCode,
		account.AllowPosting, account.Active, account.Code,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrAccountNotFound)
	}
	return nil
}

func (r *AccountRepository) SetActive(ctx context.Context, code string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET active = $1 WHERE code = $2`, active, code,
	)
	if err != nil {
		return fmt.Errorf("SetActive: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetActive: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetActive: %w", domain.ErrAccountNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.NormalBalance,
		&a.OpeningBalance, &a.ParentCode, &a.IsSystem, &a.AllowPosting,
		&a.Active, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
