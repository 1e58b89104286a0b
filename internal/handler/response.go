package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bookclose/bookclose/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		appErr = ErrAccountNotFound
	case errors.Is(err, domain.ErrStatementNotFound):
		appErr = ErrStatementNotFound
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrAccountExists):
		appErr = ErrAccountExists
	case errors.Is(err, domain.ErrStatementExists):
		appErr = ErrStatementExists
	case errors.Is(err, domain.ErrInvalidDate):
		appErr = ErrInvalidDate
	case errors.Is(err, domain.ErrInvalidPeriodType):
		appErr = ErrInvalidPeriod
	case errors.Is(err, domain.ErrInvalidDateRange):
		appErr = ErrInvalidPeriod
	case errors.Is(err, domain.ErrMissingField):
		appErr = ErrMissingField
	case errors.Is(err, domain.ErrInvalidAccountType):
		appErr = ErrInvalidAccountType
	case errors.Is(err, domain.ErrInvalidCategory):
		appErr = ErrInvalidCategory
	case errors.Is(err, domain.ErrInvalidParent):
		appErr = ErrInvalidParent
	case errors.Is(err, domain.ErrInvalidEntry):
		appErr = ErrInvalidEntry
	case errors.Is(err, domain.ErrEntryTransition):
		appErr = ErrEntryTransition
	case errors.Is(err, domain.ErrInvalidTransition):
		appErr = ErrInvalidTransition
	case errors.Is(err, domain.ErrPublishedImmutable):
		appErr = ErrStatementImmutable
	case errors.Is(err, domain.ErrNotDraft):
		appErr = ErrStatementNotDraft
	case errors.Is(err, domain.ErrNotBalanceSheet):
		appErr = ErrNotBalanceSheet
	case errors.Is(err, domain.ErrSystemAccount):
		appErr = ErrSystemAccount
	case errors.Is(err, domain.ErrPostingNotAllowed):
		appErr = ErrPostingNotAllowed
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
