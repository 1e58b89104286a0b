package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
	"github.com/bookclose/bookclose/internal/service"
)

type accountService interface {
	CreateAccount(ctx context.Context, input service.CreateAccountInput) (*domain.Account, error)
	UpdateAccount(ctx context.Context, code string, input service.UpdateAccountInput) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, code string) error
	GetAccount(ctx context.Context, code string) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error)
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createAccountRequest struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Category       string          `json:"category"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ParentCode     *string         `json:"parent_code"`
	AllowPosting   *bool           `json:"allow_posting"`
	IsSystem       bool            `json:"is_system"`
}

func (r createAccountRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Code == "" {
		errs = append(errs, FieldError{Field: "code", Message: "required"})
	}

	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}

	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.AccountType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be asset, liability, equity, revenue, or expense"})
	}

	return errs
}

type updateAccountRequest struct {
	Name         *string `json:"name"`
	Category     *string `json:"category"`
	ParentCode   *string `json:"parent_code"`
	AllowPosting *bool   `json:"allow_posting"`
	Active       *bool   `json:"active"`
}

type accountDTO struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Category       string          `json:"category"`
	NormalBalance  string          `json:"normal_balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ParentCode     *string         `json:"parent_code,omitempty"`
	IsSystem       bool            `json:"is_system"`
	AllowPosting   bool            `json:"allow_posting"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:             a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Type:           string(a.Type),
		Category:       string(a.Category),
		NormalBalance:  string(a.NormalBalance),
		OpeningBalance: a.OpeningBalance,
		ParentCode:     a.ParentCode,
		IsSystem:       a.IsSystem,
		AllowPosting:   a.AllowPosting,
		Active:         a.Active,
		CreatedAt:      a.CreatedAt,
	}
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), service.CreateAccountInput{
		Code:           req.Code,
		Name:           req.Name,
		Type:           domain.AccountType(req.Type),
		Category:       domain.Category(req.Category),
		OpeningBalance: req.OpeningBalance,
		ParentCode:     req.ParentCode,
		AllowPosting:   req.AllowPosting,
		IsSystem:       req.IsSystem,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("account creation failed", "code", req.Code, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	input := service.UpdateAccountInput{
		Name:         req.Name,
		ParentCode:   req.ParentCode,
		AllowPosting: req.AllowPosting,
		Active:       req.Active,
	}
	if req.Category != nil {
		cat := domain.Category(*req.Category)
		input.Category = &cat
	}

	account, err := h.accounts.UpdateAccount(r.Context(), code, input)
	if err != nil {
		logging.FromContext(r.Context()).Warn("account update failed", "code", code, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if err := h.accounts.DeactivateAccount(r.Context(), code); err != nil {
		logging.FromContext(r.Context()).Warn("account deactivation failed", "code", code, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"code": code, "status": "inactive"})
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	account, err := h.accounts.GetAccount(r.Context(), code)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.AccountFilter{}

	if t := r.URL.Query().Get("type"); t != "" {
		if !domain.AccountType(t).IsValid() {
			RespondValidationError(w, []FieldError{{Field: "type", Message: "must be asset, liability, equity, revenue, or expense"}})
			return
		}
		filter.Type = domain.AccountType(t)
	}

	if a := r.URL.Query().Get("active"); a != "" {
		activeOnly, err := strconv.ParseBool(a)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "active", Message: "must be true or false"}})
			return
		}
		filter.ActiveOnly = activeOnly
	}

	accounts, err := h.accounts.ListAccounts(r.Context(), filter)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list accounts", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
