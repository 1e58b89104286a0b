package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
)

type accountRepo interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
	List(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	SetActive(ctx context.Context, code string, active bool) error
}

type AccountService struct {
	accounts accountRepo
}

func NewAccountService(accounts accountRepo) *AccountService {
	return &AccountService{accounts: accounts}
}

type CreateAccountInput struct {
	Code           string
	Name           string
	Type           domain.AccountType
	Category       domain.Category
	OpeningBalance decimal.Decimal
	ParentCode     *string
	AllowPosting   *bool
	IsSystem       bool
}

// CreateAccount registers a chart-of-accounts entry. The category is
// validated against the account type here, at creation time, so statement
// assembly can route balances by pure lookup.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if !input.Type.IsValid() {
		return nil, fmt.Errorf("CreateAccount: %w: %q", domain.ErrInvalidAccountType, input.Type)
	}
	category := input.Category
	if category == "" {
		category = domain.DefaultCategory(input.Type)
	}

	allowPosting := true
	if input.AllowPosting != nil {
		allowPosting = *input.AllowPosting
	}

	account := &domain.Account{
		ID:             uuid.New(),
		Code:           input.Code,
		Name:           input.Name,
		Type:           input.Type,
		Category:       category,
		NormalBalance:  domain.NormalBalanceFor(input.Type, category),
		OpeningBalance: input.OpeningBalance,
		ParentCode:     input.ParentCode,
		IsSystem:       input.IsSystem,
		AllowPosting:   allowPosting,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	if account.ParentCode != nil {
		if _, err := s.accounts.GetByCode(ctx, *account.ParentCode); err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return nil, fmt.Errorf("CreateAccount: %w: %s", domain.ErrInvalidParent, *account.ParentCode)
			}
			return nil, fmt.Errorf("CreateAccount: check parent: %w", err)
		}
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	log.Info("account created",
		"code", account.Code,
		"type", account.Type,
		"category", account.Category,
	)

	return account, nil
}

type UpdateAccountInput struct {
	Name         *string
	Category     *domain.Category
	ParentCode   *string
	AllowPosting *bool
	Active       *bool
}

// UpdateAccount changes the mutable fields of a non-system account. Code and
// type are fixed for life; posted history references them.
func (s *AccountService) UpdateAccount(ctx context.Context, code string, input UpdateAccountInput) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	account, err := s.accounts.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}
	if account.IsSystem {
		return nil, fmt.Errorf("UpdateAccount: %w", domain.ErrSystemAccount)
	}

	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.Category != nil {
		account.Category = *input.Category
		account.NormalBalance = domain.NormalBalanceFor(account.Type, account.Category)
	}
	if input.ParentCode != nil {
		if *input.ParentCode == "" {
			account.ParentCode = nil
		} else {
			if _, err := s.accounts.GetByCode(ctx, *input.ParentCode); err != nil {
				if errors.Is(err, domain.ErrAccountNotFound) {
					return nil, fmt.Errorf("UpdateAccount: %w: %s", domain.ErrInvalidParent, *input.ParentCode)
				}
				return nil, fmt.Errorf("UpdateAccount: check parent: %w", err)
			}
			account.ParentCode = input.ParentCode
		}
	}
	if input.AllowPosting != nil {
		account.AllowPosting = *input.AllowPosting
	}
	if input.Active != nil {
		account.Active = *input.Active
	}

	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}

	log.Info("account updated", "code", account.Code)
	return account, nil
}

// DeactivateAccount soft-deletes: the account stops contributing to new
// statements but its posted history stays replayable.
func (s *AccountService) DeactivateAccount(ctx context.Context, code string) error {
	account, err := s.accounts.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	if account.IsSystem {
		return fmt.Errorf("DeactivateAccount: %w", domain.ErrSystemAccount)
	}
	if err := s.accounts.SetActive(ctx, code, false); err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	return nil
}

func (s *AccountService) GetAccount(ctx context.Context, code string) (*domain.Account, error) {
	account, err := s.accounts.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}
