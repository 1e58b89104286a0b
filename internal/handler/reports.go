package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/logging"
	"github.com/bookclose/bookclose/internal/service/statement"
)

type reportsService interface {
	Balance(ctx context.Context, code string, asOf time.Time) (decimal.Decimal, error)
	TrialBalance(ctx context.Context, asOf time.Time, params statement.Params) (*statement.TrialBalance, error)
	ValidateForClose(ctx context.Context, asOf time.Time, params statement.Params) (*statement.CloseValidation, error)
	ValidateEquation(ctx context.Context, asOf time.Time, params statement.Params) (*statement.EquationCheck, error)
}

type ReportsHandler struct {
	reports reportsService
}

func NewReportsHandler(reports reportsService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// reportQuery parses the shared as_of and include_pending query parameters.
// A missing as_of means today.
func reportQuery(r *http.Request) (time.Time, statement.Params, []FieldError) {
	var errs []FieldError

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			errs = append(errs, FieldError{Field: "as_of", Message: "must be YYYY-MM-DD"})
		} else {
			asOf = parsed
		}
	}

	params := statement.Params{}
	if s := r.URL.Query().Get("include_pending"); s != "" {
		include, err := strconv.ParseBool(s)
		if err != nil {
			errs = append(errs, FieldError{Field: "include_pending", Message: "must be true or false"})
		} else {
			params.IncludePending = include
		}
	}

	return asOf, params, errs
}

func (h *ReportsHandler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	asOf, _, fields := reportQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	balance, err := h.reports.Balance(r.Context(), code, asOf)
	if err != nil {
		logging.FromContext(r.Context()).Error("balance lookup failed", "account_code", code, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"account_code": code,
		"as_of":        asOf.Format(dateLayout),
		"balance":      balance,
	})
}

type trialBalanceRowDTO struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Type        string          `json:"type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type trialBalanceDTO struct {
	AsOf        string               `json:"as_of"`
	Rows        []trialBalanceRowDTO `json:"rows"`
	TotalDebit  decimal.Decimal      `json:"total_debit"`
	TotalCredit decimal.Decimal      `json:"total_credit"`
	Difference  decimal.Decimal      `json:"difference"`
	Balanced    bool                 `json:"balanced"`
}

func toTrialBalanceDTO(tb *statement.TrialBalance) trialBalanceDTO {
	rows := make([]trialBalanceRowDTO, len(tb.Rows))
	for i, row := range tb.Rows {
		rows[i] = trialBalanceRowDTO{
			AccountCode: row.AccountCode,
			AccountName: row.AccountName,
			Type:        string(row.Type),
			Debit:       row.Debit,
			Credit:      row.Credit,
		}
	}
	return trialBalanceDTO{
		AsOf:        tb.AsOf.Format(dateLayout),
		Rows:        rows,
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Difference:  tb.Difference,
		Balanced:    tb.Balanced,
	}
}

func (h *ReportsHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, params, fields := reportQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	tb, err := h.reports.TrialBalance(r.Context(), asOf, params)
	if err != nil {
		logging.FromContext(r.Context()).Error("trial balance failed", "as_of", asOf, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTrialBalanceDTO(tb))
}

func (h *ReportsHandler) ValidateClose(w http.ResponseWriter, r *http.Request) {
	asOf, params, fields := reportQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	check, err := h.reports.ValidateForClose(r.Context(), asOf, params)
	if err != nil {
		logging.FromContext(r.Context()).Error("close validation failed", "as_of", asOf, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"as_of":      asOf.Format(dateLayout),
		"valid":      check.Valid,
		"reason":     check.Reason,
		"difference": check.Difference,
	})
}

func (h *ReportsHandler) ValidateEquation(w http.ResponseWriter, r *http.Request) {
	asOf, params, fields := reportQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	check, err := h.reports.ValidateEquation(r.Context(), asOf, params)
	if err != nil {
		logging.FromContext(r.Context()).Error("equation check failed", "as_of", asOf, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"as_of":       asOf.Format(dateLayout),
		"balanced":    check.Balanced,
		"assets":      check.Assets,
		"liabilities": check.Liabilities,
		"equity":      check.Equity,
		"difference":  check.Difference,
	})
}
