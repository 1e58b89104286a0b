package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/service"
)

type mockAccountService struct {
	account  *domain.Account
	accounts []domain.Account
	err      error

	gotCode   string
	gotInput  service.CreateAccountInput
	gotUpdate service.UpdateAccountInput
}

func (m *mockAccountService) CreateAccount(_ context.Context, input service.CreateAccountInput) (*domain.Account, error) {
	m.gotInput = input
	return m.account, m.err
}

func (m *mockAccountService) UpdateAccount(_ context.Context, code string, input service.UpdateAccountInput) (*domain.Account, error) {
	m.gotCode, m.gotUpdate = code, input
	return m.account, m.err
}

func (m *mockAccountService) DeactivateAccount(_ context.Context, code string) error {
	m.gotCode = code
	return m.err
}

func (m *mockAccountService) GetAccount(_ context.Context, code string) (*domain.Account, error) {
	m.gotCode = code
	return m.account, m.err
}

func (m *mockAccountService) ListAccounts(_ context.Context, _ domain.AccountFilter) ([]domain.Account, error) {
	return m.accounts, m.err
}

func sampleAccount() *domain.Account {
	return &domain.Account{
		ID:            uuid.New(),
		Code:          "1000",
		Name:          "Cash",
		Type:          domain.AccountTypeAsset,
		Category:      domain.CategoryCash,
		NormalBalance: domain.NormalDebit,
		AllowPosting:  true,
		Active:        true,
	}
}

func TestCreateAccountHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid asset account",
			body:       `{"code":"1000","name":"Cash","type":"asset","category":"cash"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid JSON body",
			body:       "not-json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing required fields",
			body:       `{"category":"cash"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown account type",
			body:       `{"code":"1000","name":"Cash","type":"contra"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "duplicate code",
			body:       `{"code":"1000","name":"Cash","type":"asset"}`,
			svcErr:     domain.ErrAccountExists,
			wantStatus: http.StatusConflict,
			wantCode:   "ACCOUNT_ALREADY_EXISTS",
		},
		{
			name:       "category from another type",
			body:       `{"code":"1000","name":"Cash","type":"asset","category":"sales"}`,
			svcErr:     domain.ErrInvalidCategory,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_CATEGORY",
		},
		{
			name:       "missing parent account",
			body:       `{"code":"1001","name":"Petty Cash","type":"asset","parent_code":"9999"}`,
			svcErr:     domain.ErrInvalidParent,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_PARENT",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAccountService{account: sampleAccount(), err: tc.svcErr}
			h := NewAccountHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.Create(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestCreateAccountHandler_PassesInput(t *testing.T) {
	svc := &mockAccountService{account: sampleAccount()}
	h := NewAccountHandler(svc)

	body := `{"code":"1510","name":"Accumulated Depreciation","type":"asset","category":"accumulated_depreciation","opening_balance":"250.75","allow_posting":false}`
	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "1510", svc.gotInput.Code)
	assert.Equal(t, domain.AccountTypeAsset, svc.gotInput.Type)
	assert.Equal(t, domain.CategoryAccumDepreciation, svc.gotInput.Category)
	assert.True(t, svc.gotInput.OpeningBalance.Equal(decimal.RequireFromString("250.75")))
	require.NotNil(t, svc.gotInput.AllowPosting)
	assert.False(t, *svc.gotInput.AllowPosting)
	assert.Nil(t, svc.gotInput.ParentCode)
}

func TestUpdateAccountHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "rename",
			body:       `{"name":"Cash on Hand"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown account",
			body:       `{"name":"Cash on Hand"}`,
			svcErr:     domain.ErrAccountNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "ACCOUNT_NOT_FOUND",
		},
		{
			name:       "system account is protected",
			body:       `{"name":"Renamed"}`,
			svcErr:     domain.ErrSystemAccount,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SYSTEM_ACCOUNT_PROTECTED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAccountService{account: sampleAccount(), err: tc.svcErr}
			h := NewAccountHandler(svc)

			req := httptest.NewRequest(http.MethodPatch, "/accounts/1000", strings.NewReader(tc.body))
			req.SetPathValue("code", "1000")
			rr := httptest.NewRecorder()

			h.Update(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
				assert.Equal(t, "1000", svc.gotCode)
				require.NotNil(t, svc.gotUpdate.Name)
				assert.Equal(t, "Cash on Hand", *svc.gotUpdate.Name)
			} else {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestListAccountsHandler_RejectsBadFilter(t *testing.T) {
	svc := &mockAccountService{}
	h := NewAccountHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/accounts?type=contra", nil)
	rr := httptest.NewRecorder()

	h.List(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}
